// Package api serves the dashboard HTTP/JSON surface: read endpoints over
// the in-memory stores, agent and vault commands, CSV export, and the
// notification feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"arb-console/internal/backtest"
	"arb-console/internal/domain"
	"arb-console/internal/export"
	"arb-console/internal/notify"
	"arb-console/internal/observability"
	"arb-console/internal/state"
	"arb-console/internal/strategy"
	"arb-console/internal/stream"
	"arb-console/internal/vault"
)

// AgentController is the command surface of the stream client.
type AgentController interface {
	StartAgent() error
	StopAgent() error
	Connected() bool
}

var _ AgentController = (*stream.Client)(nil)

// VaultFlow is the vault operation surface. A nil flow means the vault is
// not configured and its endpoints answer 503.
type VaultFlow interface {
	Deposit(ctx context.Context, amount string) (string, error)
	Withdraw(ctx context.Context, amount string) (string, error)
	Balances(ctx context.Context) (vault.Balances, error)
	Status() vault.TxStatus
}

var _ VaultFlow = (*vault.Flow)(nil)

// Options wires the server's collaborators.
type Options struct {
	Trading  *state.TradingStore
	Strategy *state.StrategyStore
	Filters  *state.FilterStore
	Feed     *notify.Feed
	Agent    AgentController
	Vault    VaultFlow
	Backtest *backtest.Runner
	Logger   *zap.SugaredLogger
}

// Server is the dashboard API server.
type Server struct {
	trading   *state.TradingStore
	strategy  *state.StrategyStore
	filters   *state.FilterStore
	feed      *notify.Feed
	agent     AgentController
	vault     VaultFlow
	backtest  *backtest.Runner
	logger    *zap.SugaredLogger
	now       func() time.Time
	startedAt time.Time
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		trading:   opts.Trading,
		strategy:  opts.Strategy,
		filters:   opts.Filters,
		feed:      opts.Feed,
		agent:     opts.Agent,
		vault:     opts.Vault,
		backtest:  opts.Backtest,
		logger:    logger,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.timed("/api/status", s.handleStatus))
	mux.HandleFunc("GET /api/opportunities", s.timed("/api/opportunities", s.handleOpportunities))
	mux.HandleFunc("GET /api/trades", s.timed("/api/trades", s.handleTrades))
	mux.HandleFunc("GET /api/trades/export", s.timed("/api/trades/export", s.handleExport))
	mux.HandleFunc("GET /api/portfolio", s.timed("/api/portfolio", s.handlePortfolio))
	mux.HandleFunc("GET /api/insights", s.timed("/api/insights", s.handleInsights))
	mux.HandleFunc("GET /api/notifications", s.timed("/api/notifications", s.handleNotifications))

	mux.HandleFunc("GET /api/strategy", s.timed("/api/strategy", s.handleStrategyGet))
	mux.HandleFunc("POST /api/strategy/activate", s.timed("/api/strategy/activate", s.handleStrategyActivate))
	mux.HandleFunc("PATCH /api/strategy", s.timed("/api/strategy", s.handleStrategyUpdate))
	mux.HandleFunc("POST /api/strategy/reset", s.timed("/api/strategy/reset", s.handleStrategyReset))
	mux.HandleFunc("POST /api/backtest", s.timed("/api/backtest", s.handleBacktest))

	mux.HandleFunc("POST /api/agent/start", s.timed("/api/agent/start", s.handleAgentStart))
	mux.HandleFunc("POST /api/agent/stop", s.timed("/api/agent/stop", s.handleAgentStop))

	mux.HandleFunc("POST /api/vault/deposit", s.timed("/api/vault/deposit", s.handleVaultDeposit))
	mux.HandleFunc("POST /api/vault/withdraw", s.timed("/api/vault/withdraw", s.handleVaultWithdraw))
	mux.HandleFunc("GET /api/vault/balances", s.timed("/api/vault/balances", s.handleVaultBalances))
	mux.HandleFunc("GET /api/vault/status", s.timed("/api/vault/status", s.handleVaultStatus))

	return mux
}

// timed wraps a handler with the request-latency histogram.
func (s *Server) timed(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		h(w, r)
		observability.ObserveHTTP(route, r.Method, time.Since(start).Seconds())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Connected bool                `json:"connected"`
	Uptime    string              `json:"uptime"`
	Agent     *domain.AgentStatus `json:"agent,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
		Agent:  s.trading.AgentStatus(),
	}
	if s.agent != nil {
		resp.Connected = s.agent.Connected()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpportunities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.trading.Opportunities())
}

// tradesResponse is one page of the filtered trade-history view.
type tradesResponse struct {
	Trades   []domain.Trade `json:"trades"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// handleTrades serves the trade-history view. Query parameters replace the
// session view state, so the next parameterless request sees the same view.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if err := s.applyViewParams(r); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	view := s.filters.View()
	trades, total := state.ApplyView(s.trading.Trades(), view)
	s.writeJSON(w, http.StatusOK, tradesResponse{
		Trades:   trades,
		Total:    total,
		Page:     view.Page,
		PageSize: view.PageSize,
	})
}

// applyViewParams folds query parameters into the filter store.
func (s *Server) applyViewParams(r *http.Request) error {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}

	f := domain.TradeFilters{
		Pair:   q.Get("pair"),
		Status: domain.TradeStatus(q.Get("status")),
		Search: q.Get("search"),
	}
	var err error
	if f.From, err = parseInt64(q.Get("from")); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if f.To, err = parseInt64(q.Get("to")); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if v := q.Get("minConfidence"); v != "" {
		if f.MinConfidence, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("minConfidence: %w", err)
		}
	}
	s.filters.SetFilters(f)

	if v := q.Get("sortBy"); v != "" {
		s.filters.SetSort(state.SortField(v), q.Get("order") == "asc")
	}
	page, err := parseInt(q.Get("page"))
	if err != nil {
		return fmt.Errorf("page: %w", err)
	}
	pageSize, err := parseInt(q.Get("pageSize"))
	if err != nil {
		return fmt.Errorf("pageSize: %w", err)
	}
	if page > 0 || pageSize > 0 {
		s.filters.SetPage(page, pageSize)
	}
	return nil
}

// handleExport streams the current filtered view as CSV, ignoring
// pagination: an export always covers every matching trade.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := s.applyViewParams(r); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	view := s.filters.View()
	view.Page = 0
	view.PageSize = 0
	trades, _ := state.ApplyView(s.trading.Trades(), view)

	body := export.RenderTradesCSV(trades)
	observability.RecordExport()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(s.now())))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	p := s.trading.Portfolio()
	if p == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no portfolio data yet"))
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// insightsResponse combines the AI summary with the skipped-trade log.
type insightsResponse struct {
	Insights *domain.AIInsights    `json:"insights,omitempty"`
	Skipped  []domain.SkippedTrade `json:"skipped"`
}

func (s *Server) handleInsights(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, insightsResponse{
		Insights: s.trading.AIInsights(),
		Skipped:  s.trading.SkippedTrades(),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, s.feed.Recent(limit))
}

// strategyResponse is the /api/strategy payload.
type strategyResponse struct {
	Catalog []domain.Strategy `json:"catalog"`
	Active  *domain.Strategy  `json:"active,omitempty"`
}

func (s *Server) handleStrategyGet(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, strategyResponse{
		Catalog: s.strategy.Catalog(),
		Active:  s.strategy.Active(),
	})
}

type activateRequest struct {
	PresetID string `json:"presetId"`
}

func (s *Server) handleStrategyActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := s.strategy.SetActivePreset(req.PresetID); err != nil {
		if errors.Is(err, strategy.ErrUnknownPreset) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.strategy.Active())
}

func (s *Server) handleStrategyUpdate(w http.ResponseWriter, r *http.Request) {
	if s.strategy.Active() == nil {
		s.writeError(w, http.StatusConflict, errors.New("no active strategy"))
		return
	}
	var patch domain.StrategyPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	s.strategy.Update(patch)
	s.writeJSON(w, http.StatusOK, s.strategy.Active())
}

func (s *Server) handleStrategyReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.strategy.Reset(); err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.strategy.Active())
}

// backtestRequest selects the strategy and the history window to replay.
// An empty window replays the whole archive.
type backtestRequest struct {
	PresetID string `json:"presetId"`
	From     int64  `json:"from,omitempty"`
	To       int64  `json:"to,omitempty"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if s.backtest == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("backtest not configured"))
		return
	}
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	st, err := strategy.PresetByID(req.PresetID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	var results *backtest.Results
	if req.From != 0 || req.To != 0 {
		results, err = s.backtest.Run(r.Context(), st, req.From, req.To)
	} else {
		results, err = s.backtest.RunAll(r.Context(), st)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleAgentStart(w http.ResponseWriter, _ *http.Request) {
	s.agentCommand(w, "start", func() error { return s.agent.StartAgent() })
}

func (s *Server) handleAgentStop(w http.ResponseWriter, _ *http.Request) {
	s.agentCommand(w, "stop", func() error { return s.agent.StopAgent() })
}

// agentCommand sends one fire-and-forget agent command. 202 because the
// command has no acknowledgement: the next status event is the answer.
func (s *Server) agentCommand(w http.ResponseWriter, name string, send func() error) {
	if s.agent == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("agent stream not configured"))
		return
	}
	if err := send(); err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("agent %s: %w", name, err))
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"command": name})
}

type vaultRequest struct {
	Amount string `json:"amount"`
}

// vaultResponse reports the submitted transaction hash.
type vaultResponse struct {
	TxHash string `json:"txHash"`
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	s.vaultTx(w, r, "deposit", func(ctx context.Context, amount string) (string, error) {
		return s.vault.Deposit(ctx, amount)
	})
}

func (s *Server) handleVaultWithdraw(w http.ResponseWriter, r *http.Request) {
	s.vaultTx(w, r, "withdraw", func(ctx context.Context, amount string) (string, error) {
		return s.vault.Withdraw(ctx, amount)
	})
}

func (s *Server) vaultTx(w http.ResponseWriter, r *http.Request, kind string, submit func(context.Context, string) (string, error)) {
	if s.vault == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("vault not configured"))
		return
	}
	var req vaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if strings.TrimSpace(req.Amount) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("amount is required"))
		return
	}

	start := s.now()
	txHash, err := submit(r.Context(), req.Amount)
	if err != nil {
		observability.RecordVaultTx(kind, "error", time.Since(start).Seconds())
		switch {
		case errors.Is(err, vault.ErrTxInFlight):
			s.writeError(w, http.StatusConflict, err)
		case errors.Is(err, vault.ErrWalletNotConnected):
			s.writeError(w, http.StatusPreconditionFailed, err)
		default:
			s.writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	observability.RecordVaultTx(kind, "success", time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, vaultResponse{TxHash: txHash})
}

func (s *Server) handleVaultBalances(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("vault not configured"))
		return
	}
	balances, err := s.vault.Balances(r.Context())
	if err != nil {
		if errors.Is(err, vault.ErrWalletNotConnected) {
			s.writeError(w, http.StatusPreconditionFailed, err)
			return
		}
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleVaultStatus(w http.ResponseWriter, _ *http.Request) {
	if s.vault == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("vault not configured"))
		return
	}
	s.writeJSON(w, http.StatusOK, s.vault.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func parseInt64(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
