// Package persist archives stream data for analytics: terminal trades into
// the trade-history store and portfolio updates into the snapshot store.
// Archiving is best effort; a write failure never blocks the live view.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"arb-console/internal/domain"
	"arb-console/internal/observability"
	"arb-console/internal/storage"
	"arb-console/internal/stream"
)

// defaultWriteTimeout bounds one archive write.
const defaultWriteTimeout = 5 * time.Second

// Archiver subscribes to the completed-trade and portfolio events and
// persists them.
type Archiver struct {
	history   storage.TradeHistoryStore
	snapshots storage.PortfolioSnapshotStore
	logger    *zap.SugaredLogger
	timeout   time.Duration
}

// NewArchiver creates an archiver. Either store may be nil to disable that
// path.
func NewArchiver(history storage.TradeHistoryStore, snapshots storage.PortfolioSnapshotStore, logger *zap.SugaredLogger) *Archiver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Archiver{
		history:   history,
		snapshots: snapshots,
		logger:    logger,
		timeout:   defaultWriteTimeout,
	}
}

// Bind subscribes the archiver to its events.
func (a *Archiver) Bind(sub stream.Subscriber) {
	if a.history != nil {
		sub.Subscribe(stream.EventTradeCompleted, a.handleTradeCompleted)
	}
	if a.snapshots != nil {
		sub.Subscribe(stream.EventPortfolioUpdated, a.handlePortfolioUpdated)
	}
}

func (a *Archiver) handleTradeCompleted(data json.RawMessage) {
	var t domain.Trade
	if err := json.Unmarshal(data, &t); err != nil {
		a.logger.Warnw("archive skipped undecodable trade", "error", err)
		return
	}
	if !t.Status.IsTerminal() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	// Upsert: a completion can repeat on reconnect replay.
	if err := a.history.Upsert(ctx, &t); err != nil {
		observability.RecordDBError("postgres", "archive_trade")
		a.logger.Errorw("trade archive failed", "id", t.ID, "error", err)
		return
	}
	observability.RecordArchived()
}

func (a *Archiver) handlePortfolioUpdated(data json.RawMessage) {
	var p domain.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		a.logger.Warnw("snapshot skipped undecodable portfolio", "error", err)
		return
	}

	snap := p.Snapshot()
	if snap.Timestamp == 0 {
		snap.Timestamp = time.Now().UnixMilli()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	err := a.snapshots.InsertBulk(ctx, []*domain.PortfolioSnapshot{&snap})
	if err != nil {
		// Same-timestamp replays are expected, not failures.
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		observability.RecordDBError("clickhouse", "snapshot")
		a.logger.Errorw("portfolio snapshot failed", "error", err)
		return
	}
	observability.RecordSnapshot()
}
