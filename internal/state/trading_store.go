// Package state holds the canonical client-side application state: trading
// data fed by the agent event stream, the strategy selection, and the
// trade-history view filters. Stores are owned by the composition root and
// injected into consumers; mutation happens only through exported actions.
package state

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"arb-console/internal/domain"
	"arb-console/internal/observability"
)

// TradingStoreConfig carries the store tunables.
type TradingStoreConfig struct {
	// OpportunityCap bounds retained opportunities; oldest are evicted.
	OpportunityCap int
	// OpportunityExpiry is the age after which an opportunity with no
	// follow-up is removed by the sweep.
	OpportunityExpiry time.Duration
}

// DefaultTradingStoreConfig returns the default tunables.
func DefaultTradingStoreConfig() TradingStoreConfig {
	return TradingStoreConfig{
		OpportunityCap:    50,
		OpportunityExpiry: 2 * time.Minute,
	}
}

// TradingStore is the single source of truth for agent, opportunity, trade,
// portfolio and AI-insight state. Mutations are keyed, idempotent merges:
// the transport guarantees no delivery order, so the store never assumes one.
type TradingStore struct {
	mu sync.RWMutex

	status        *domain.AgentStatus
	opportunities []domain.Opportunity
	trades        []domain.Trade
	skipped       []domain.SkippedTrade
	insights      *domain.AIInsights
	portfolio     *domain.Portfolio

	// seeded and streamSeen implement the one-shot demo seed guard:
	// seeding never overwrites data that arrived from the stream.
	seeded     bool
	streamSeen bool

	cfg    TradingStoreConfig
	logger *zap.SugaredLogger
	now    func() time.Time

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewTradingStore creates an empty trading store.
func NewTradingStore(cfg TradingStoreConfig, logger *zap.SugaredLogger) *TradingStore {
	if cfg.OpportunityCap <= 0 {
		cfg.OpportunityCap = DefaultTradingStoreConfig().OpportunityCap
	}
	if cfg.OpportunityExpiry <= 0 {
		cfg.OpportunityExpiry = DefaultTradingStoreConfig().OpportunityExpiry
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TradingStore{
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func()),
	}
}

// OnChange registers a listener invoked after every mutation. The returned
// function unsubscribes it.
func (s *TradingStore) OnChange(fn func()) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// notifyChange invokes listeners outside the state lock.
func (s *TradingStore) notifyChange() {
	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SetAgentStatus replaces the agent status wholesale.
func (s *TradingStore) SetAgentStatus(status domain.AgentStatus) {
	s.mu.Lock()
	copy := status
	s.status = &copy
	s.streamSeen = true
	s.mu.Unlock()
	s.notifyChange()
}

// AgentStatus returns a copy of the last known agent status, or nil when
// none has arrived yet.
func (s *TradingStore) AgentStatus() *domain.AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return nil
	}
	copy := *s.status
	return &copy
}

// AddOpportunity prepends a detected opportunity, evicting the oldest past
// the retention cap.
func (s *TradingStore) AddOpportunity(opp domain.Opportunity) {
	s.mu.Lock()
	s.opportunities = append([]domain.Opportunity{opp}, s.opportunities...)
	if len(s.opportunities) > s.cfg.OpportunityCap {
		s.evictOldestOpportunitiesLocked()
	}
	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
}

// evictOldestOpportunitiesLocked drops opportunities beyond the cap,
// removing the ones with the smallest timestamps. Arrival order is not
// temporal order, so eviction is by timestamp rather than position.
func (s *TradingStore) evictOldestOpportunitiesLocked() {
	sort.SliceStable(s.opportunities, func(i, j int) bool {
		return s.opportunities[i].Timestamp > s.opportunities[j].Timestamp
	})
	observability.RecordEvicted(len(s.opportunities) - s.cfg.OpportunityCap)
	s.opportunities = s.opportunities[:s.cfg.OpportunityCap]
}

// publishSizesLocked pushes the current collection sizes to the gauges.
func (s *TradingStore) publishSizesLocked() {
	observability.SetOpportunitiesTracked(len(s.opportunities))
	observability.SetTradesTracked(len(s.trades))
}

// SetOpportunities replaces the opportunity list wholesale (initial
// snapshot), applying the retention cap.
func (s *TradingStore) SetOpportunities(opps []domain.Opportunity) {
	s.mu.Lock()
	s.opportunities = append([]domain.Opportunity(nil), opps...)
	if len(s.opportunities) > s.cfg.OpportunityCap {
		s.evictOldestOpportunitiesLocked()
	}
	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
}

// MarkOpportunity advances the lifecycle status of an opportunity. Unknown
// ids are ignored.
func (s *TradingStore) MarkOpportunity(id string, status domain.OpportunityStatus) {
	s.mu.Lock()
	changed := false
	for i := range s.opportunities {
		if s.opportunities[i].ID == id {
			s.opportunities[i].Status = status
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.notifyChange()
	}
}

// SweepExpiredOpportunities removes opportunities older than the configured
// expiry with no follow-up. Returns the number removed.
func (s *TradingStore) SweepExpiredOpportunities() int {
	cutoff := s.now().Add(-s.cfg.OpportunityExpiry).UnixMilli()

	s.mu.Lock()
	kept := s.opportunities[:0]
	removed := 0
	for _, opp := range s.opportunities {
		if opp.Timestamp < cutoff {
			removed++
			continue
		}
		kept = append(kept, opp)
	}
	s.opportunities = kept
	s.publishSizesLocked()
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debugw("expired opportunities removed", "count", removed)
		s.notifyChange()
	}
	return removed
}

// removeOpportunityLocked drops the opportunity a trade was created for.
func (s *TradingStore) removeOpportunityLocked(opportunityID string) {
	if opportunityID == "" {
		return
	}
	for i := range s.opportunities {
		if s.opportunities[i].ID == opportunityID {
			s.opportunities = append(s.opportunities[:i], s.opportunities[i+1:]...)
			return
		}
	}
}

// Opportunities returns a copy of retained opportunities, newest first by
// timestamp.
func (s *TradingStore) Opportunities() []domain.Opportunity {
	s.mu.RLock()
	out := append([]domain.Opportunity(nil), s.opportunities...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// SetTrades replaces the trade list wholesale (initial snapshot).
func (s *TradingStore) SetTrades(trades []domain.Trade) {
	s.mu.Lock()
	s.trades = append([]domain.Trade(nil), trades...)
	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
}

// AddTrade inserts a new trade. Delivery is at-least-once: an id already
// present makes this a no-op, never a duplicate insertion.
func (s *TradingStore) AddTrade(t domain.Trade) {
	s.mu.Lock()
	if s.findTradeLocked(t.ID) != nil {
		s.mu.Unlock()
		s.logger.Debugw("duplicate trade insert ignored", "id", t.ID)
		return
	}
	s.trades = append([]domain.Trade{t}, s.trades...)
	s.removeOpportunityLocked(t.OpportunityID)
	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
}

// UpdateTrade merges a patch into the trade matching id. Rules:
//   - terminal trades are immutable: any patch against one is logged and
//     dropped, the caller sees no error;
//   - an unknown id whose patch carries a terminal status creates the trade
//     in that terminal state (a completion may outrun its start event);
//   - an unknown id with a non-terminal patch is logged and dropped.
func (s *TradingStore) UpdateTrade(id string, patch domain.TradePatch) {
	s.mu.Lock()
	t := s.findTradeLocked(id)

	switch {
	case t == nil:
		if patch.Status == nil || !patch.Status.IsTerminal() {
			s.mu.Unlock()
			s.logger.Warnw("update for unknown trade dropped", "id", id)
			return
		}
		created := domain.Trade{ID: id, Timestamp: s.now().UnixMilli()}
		patch.Apply(&created)
		s.trades = append([]domain.Trade{created}, s.trades...)
		s.logger.Infow("completion for unknown trade created terminal record", "id", id)

	case t.Status.IsTerminal():
		s.mu.Unlock()
		s.logger.Warnw("patch against terminal trade ignored", "id", id, "status", t.Status)
		observability.RecordStalePatch()
		return

	default:
		patch.Apply(t)
	}

	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
}

// CompleteTrade applies a full terminal trade payload: merge by id, insert
// if absent. A trade already terminal is left untouched. Reports whether
// the payload was applied, so callers can skip side effects for drops.
func (s *TradingStore) CompleteTrade(t domain.Trade) bool {
	if !t.Status.IsTerminal() {
		s.logger.Warnw("completion payload with non-terminal status dropped", "id", t.ID, "status", t.Status)
		return false
	}

	s.mu.Lock()
	existing := s.findTradeLocked(t.ID)

	switch {
	case existing == nil:
		s.trades = append([]domain.Trade{t}, s.trades...)
		s.removeOpportunityLocked(t.OpportunityID)

	case existing.Status.IsTerminal():
		s.mu.Unlock()
		s.logger.Warnw("completion for already-terminal trade ignored", "id", t.ID)
		observability.RecordStalePatch()
		return false

	default:
		// Keep the original start timestamp when the completion omits one.
		if t.Timestamp == 0 {
			t.Timestamp = existing.Timestamp
		}
		*existing = t
		s.removeOpportunityLocked(t.OpportunityID)
	}

	s.streamSeen = true
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
	return true
}

// findTradeLocked returns a pointer into the trade slice, or nil.
func (s *TradingStore) findTradeLocked(id string) *domain.Trade {
	for i := range s.trades {
		if s.trades[i].ID == id {
			return &s.trades[i]
		}
	}
	return nil
}

// Trades returns a copy of all trades, newest first by timestamp.
func (s *TradingStore) Trades() []domain.Trade {
	s.mu.RLock()
	out := append([]domain.Trade(nil), s.trades...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// TradeByID returns a copy of the trade with the given id.
func (s *TradingStore) TradeByID(id string) (domain.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.findTradeLocked(id); t != nil {
		return *t, true
	}
	return domain.Trade{}, false
}

// SetPortfolio replaces the portfolio snapshot wholesale.
func (s *TradingStore) SetPortfolio(p domain.Portfolio) {
	s.mu.Lock()
	copy := p
	s.portfolio = &copy
	s.streamSeen = true
	s.mu.Unlock()
	s.notifyChange()
}

// Portfolio returns a copy of the last portfolio snapshot, or nil.
func (s *TradingStore) Portfolio() *domain.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.portfolio == nil {
		return nil
	}
	copy := *s.portfolio
	return &copy
}

// AddSkippedTrade appends to the skipped-trade log.
func (s *TradingStore) AddSkippedTrade(rec domain.SkippedTrade) {
	s.mu.Lock()
	s.skipped = append(s.skipped, rec)
	s.streamSeen = true
	s.mu.Unlock()
	s.notifyChange()
}

// SkippedTrades returns a copy of the skipped-trade log.
func (s *TradingStore) SkippedTrades() []domain.SkippedTrade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SkippedTrade(nil), s.skipped...)
}

// SetAIInsights replaces the AI insight summary wholesale.
func (s *TradingStore) SetAIInsights(ins domain.AIInsights) {
	s.mu.Lock()
	copy := ins
	s.insights = &copy
	s.streamSeen = true
	s.mu.Unlock()
	s.notifyChange()
}

// AIInsights returns a copy of the last insight summary, or nil.
func (s *TradingStore) AIInsights() *domain.AIInsights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.insights == nil {
		return nil
	}
	copy := *s.insights
	return &copy
}

// Seed applies demo data exactly once and never over stream data:
// a second call, or a call after any stream mutation, is a no-op.
// Returns whether the seed was applied.
func (s *TradingStore) Seed(status domain.AgentStatus, opps []domain.Opportunity, trades []domain.Trade, portfolio domain.Portfolio, insights domain.AIInsights) bool {
	s.mu.Lock()
	if s.seeded || s.streamSeen {
		s.mu.Unlock()
		s.logger.Debugw("demo seed skipped", "seeded", s.seeded, "streamSeen", s.streamSeen)
		return false
	}
	s.seeded = true
	s.status = &status
	s.opportunities = append([]domain.Opportunity(nil), opps...)
	if len(s.opportunities) > s.cfg.OpportunityCap {
		s.evictOldestOpportunitiesLocked()
	}
	s.trades = append([]domain.Trade(nil), trades...)
	s.portfolio = &portfolio
	s.insights = &insights
	s.publishSizesLocked()
	s.mu.Unlock()
	s.notifyChange()
	return true
}
