// Package main runs the arb-console dashboard gateway:
// - Stream (continuous): one websocket connection to the trading agent
// - State: in-memory stores fed by the stream, served over HTTP/JSON
// - Vault: deposit/withdraw flow against the EVM chain over JSON-RPC
// - Persistence (optional): trade history to PostgreSQL, portfolio
//   snapshots to ClickHouse
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"arb-console/internal/api"
	"arb-console/internal/backtest"
	"arb-console/internal/config"
	"arb-console/internal/logger"
	"arb-console/internal/mockdata"
	"arb-console/internal/notify"
	"arb-console/internal/observability"
	"arb-console/internal/persist"
	"arb-console/internal/state"
	"arb-console/internal/storage"
	chstore "arb-console/internal/storage/clickhouse"
	"arb-console/internal/storage/memory"
	"arb-console/internal/storage/migrations"
	pgstore "arb-console/internal/storage/postgres"
	"arb-console/internal/stream"
	"arb-console/internal/vault"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	history, snapshots, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		log.Fatalw("store setup failed", "error", err)
	}
	defer cleanup()

	trading := state.NewTradingStore(state.TradingStoreConfig{
		OpportunityCap:    cfg.OpportunityCap,
		OpportunityExpiry: cfg.OpportunityExpiry,
	}, log)
	strategyStore := state.NewStrategyStore(log)
	filters := state.NewFilterStore()
	feed := notify.NewFeed(cfg.NotificationCap, log)

	flow := createVaultFlow(cfg, feed, log)

	var client *stream.Client
	if cfg.AgentWSURL != "" {
		streamCfg := stream.DefaultConfig(cfg.AgentWSURL)
		streamCfg.MaxReconnectAttempts = cfg.ReconnectAttempts
		streamCfg.ReconnectDelay = cfg.ReconnectDelay
		client = stream.NewClient(streamCfg, log)

		stream.NewBinder(trading, feed, log).Bind(client)
		persist.NewArchiver(history, snapshots, log).Bind(client)

		if err := client.Connect(ctx); err != nil {
			// Not fatal: the dashboard serves last-known (or demo) state
			// and the agent can be reached on a later explicit connect.
			log.Warnw("agent stream connect failed", "url", cfg.AgentWSURL, "error", err)
		}
		defer client.Close()
	}

	if cfg.DemoMode {
		seedDemo(trading, log)
	}

	go sweepLoop(ctx, trading, cfg.OpportunityExpiry, log)

	srv := api.NewServer(api.Options{
		Trading:  trading,
		Strategy: strategyStore,
		Filters:  filters,
		Feed:     feed,
		Agent:    agentController(client),
		Vault:    vaultFlow(flow),
		Backtest: backtest.NewRunner(history, 250*time.Millisecond),
		Logger:   log,
	})

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Handler()}
	go func() {
		log.Infow("api server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("api server failed", "error", err)
			cancel()
		}
	}()

	go serveMetrics(cfg.MetricsAddr, log)

	waitForShutdown(ctx, log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("api server shutdown failed", "error", err)
	}
	log.Infow("shutdown complete")
}

// agentController keeps the api's agent field a true nil when the stream is
// not configured.
func agentController(client *stream.Client) api.AgentController {
	if client == nil {
		return nil
	}
	return client
}

// vaultFlow keeps the api's vault field a true nil when the vault is not
// configured.
func vaultFlow(flow *vault.Flow) api.VaultFlow {
	if flow == nil {
		return nil
	}
	return flow
}

// createStores selects in-memory or database-backed stores per the DSNs.
// Both DSNs empty selects memory; setting one without the other is allowed.
func createStores(ctx context.Context, cfg *config.Config) (storage.TradeHistoryStore, storage.PortfolioSnapshotStore, func(), error) {
	var (
		history   storage.TradeHistoryStore
		snapshots storage.PortfolioSnapshotStore
		closers   []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		history = pgstore.NewTradeHistoryStore(pool)
	} else {
		history = memory.NewTradeHistoryStore()
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		snapshots = chstore.NewPortfolioSnapshotStore(conn)
	} else {
		snapshots = memory.NewPortfolioSnapshotStore()
	}

	return history, snapshots, cleanup, nil
}

// createVaultFlow builds the vault flow when an RPC endpoint is configured.
func createVaultFlow(cfg *config.Config, feed *notify.Feed, log *zap.SugaredLogger) *vault.Flow {
	if cfg.RPCEndpoint == "" {
		return nil
	}

	rpc := vault.NewHTTPClient(cfg.RPCEndpoint)
	flow := vault.NewFlow(vault.FlowConfig{
		ChainID:       cfg.ChainID,
		VaultAddress:  cfg.VaultAddress,
		TokenAddress:  cfg.TokenAddress,
		TokenDecimals: cfg.TokenDecimals,
		RefreshDelay:  cfg.RefreshDelay,
	}, rpc, rpc, feed, log)

	flow.OnRefresh(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		balances, err := flow.Balances(ctx)
		if err != nil {
			log.Warnw("post-transaction balance refresh failed", "error", err)
			return
		}
		log.Infow("balances refreshed",
			"wallet", balances.Wallet, "vault", balances.Vault, "allowance", balances.Allowance)
	})
	return flow
}

// seedDemo applies generated mock data through the store's one-shot guard.
func seedDemo(trading *state.TradingStore, log *zap.SugaredLogger) {
	gen := mockdata.NewGenerator(time.Now().UnixNano())
	applied := trading.Seed(
		gen.AgentStatus(),
		gen.Opportunities(12),
		gen.Trades(30),
		gen.Portfolio(),
		gen.Insights(),
	)
	log.Infow("demo mode", "seeded", applied)
}

// sweepLoop periodically removes expired opportunities.
func sweepLoop(ctx context.Context, trading *state.TradingStore, expiry time.Duration, log *zap.SugaredLogger) {
	interval := expiry / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := trading.SweepExpiredOpportunities(); removed > 0 {
				observability.DefaultMetrics.OpportunitiesExpired.Add(float64(removed))
			}
		}
	}
}

// serveMetrics exposes Prometheus metrics on a separate listener.
func serveMetrics(addr string, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Infow("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Errorw("metrics server failed", "error", err)
	}
}

// waitForShutdown blocks until a termination signal or context cancellation.
func waitForShutdown(ctx context.Context, log *zap.SugaredLogger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infow("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}
}
