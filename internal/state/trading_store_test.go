package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"arb-console/internal/domain"
	"arb-console/internal/observability"
)

func newTestStore(cap int, expiry time.Duration) *TradingStore {
	return NewTradingStore(TradingStoreConfig{OpportunityCap: cap, OpportunityExpiry: expiry}, nil)
}

func opp(id string, ts int64) domain.Opportunity {
	return domain.Opportunity{
		ID:        id,
		Timestamp: ts,
		Pair:      "ETH/USDC",
		Status:    domain.OpportunityDetected,
	}
}

func pendingTrade(id string, ts int64) domain.Trade {
	return domain.Trade{
		ID:        id,
		Timestamp: ts,
		Pair:      "ETH/USDC",
		Status:    domain.TradeStatusPending,
	}
}

func statusPtr(s domain.TradeStatus) *domain.TradeStatus { return &s }
func floatPtr(v float64) *float64                        { return &v }

func TestOpportunityCapEvictsOldest(t *testing.T) {
	s := newTestStore(3, time.Minute)

	// Insert out of arrival order relative to timestamps.
	s.AddOpportunity(opp("o3", 3000))
	s.AddOpportunity(opp("o1", 1000))
	s.AddOpportunity(opp("o4", 4000))
	s.AddOpportunity(opp("o2", 2000))

	got := s.Opportunities()
	if len(got) != 3 {
		t.Fatalf("retained %d opportunities, want 3", len(got))
	}
	// o1 has the smallest timestamp and must be the one evicted.
	for _, o := range got {
		if o.ID == "o1" {
			t.Error("oldest opportunity o1 survived eviction")
		}
	}
	if got[0].ID != "o4" {
		t.Errorf("first = %s, want o4 (newest first)", got[0].ID)
	}
}

func TestSweepExpiredOpportunities(t *testing.T) {
	s := newTestStore(50, time.Minute)
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	s.AddOpportunity(opp("fresh", base.Add(-30*time.Second).UnixMilli()))
	s.AddOpportunity(opp("stale", base.Add(-2*time.Minute).UnixMilli()))
	s.AddOpportunity(opp("edge", base.Add(-time.Minute).UnixMilli()))

	removed := s.SweepExpiredOpportunities()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	got := s.Opportunities()
	if len(got) != 2 {
		t.Fatalf("retained %d, want 2", len(got))
	}
	for _, o := range got {
		if o.ID == "stale" {
			t.Error("stale opportunity survived sweep")
		}
	}
}

func TestAddTradeRemovesLinkedOpportunity(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.AddOpportunity(opp("o1", 1000))

	tr := pendingTrade("t1", 2000)
	tr.OpportunityID = "o1"
	s.AddTrade(tr)

	if len(s.Opportunities()) != 0 {
		t.Error("opportunity not removed when trade created for it")
	}

	// Redelivery of the same trade is a no-op.
	s.AddTrade(tr)
	if n := len(s.Trades()); n != 1 {
		t.Errorf("trade count after duplicate insert = %d, want 1", n)
	}
}

func TestUpdateTradeMergesPatch(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.AddTrade(pendingTrade("t1", 1000))

	s.UpdateTrade("t1", domain.TradePatch{Profit: floatPtr(5.5), TxHash: strPtr("0xaaa")})

	got, ok := s.TradeByID("t1")
	if !ok {
		t.Fatal("trade missing after update")
	}
	if got.Profit != 5.5 || got.TxHash != "0xaaa" {
		t.Errorf("patch not applied: profit=%f hash=%s", got.Profit, got.TxHash)
	}
	if got.Status != domain.TradeStatusPending {
		t.Errorf("status changed to %s without a status patch", got.Status)
	}
}

func strPtr(s string) *string { return &s }

func TestTerminalTradeImmutable(t *testing.T) {
	s := newTestStore(50, time.Minute)
	tr := pendingTrade("t1", 1000)
	s.AddTrade(tr)
	s.UpdateTrade("t1", domain.TradePatch{Status: statusPtr(domain.TradeStatusSuccess), Profit: floatPtr(10)})

	// Any further patch must be dropped.
	s.UpdateTrade("t1", domain.TradePatch{Status: statusPtr(domain.TradeStatusFailed), Profit: floatPtr(-99)})

	got, _ := s.TradeByID("t1")
	if got.Status != domain.TradeStatusSuccess {
		t.Errorf("terminal status mutated to %s", got.Status)
	}
	if got.Profit != 10 {
		t.Errorf("terminal trade profit mutated to %f", got.Profit)
	}

	// A full completion payload against a terminal trade is also ignored.
	done := pendingTrade("t1", 1000)
	done.Status = domain.TradeStatusFailed
	s.CompleteTrade(done)
	got, _ = s.TradeByID("t1")
	if got.Status != domain.TradeStatusSuccess {
		t.Errorf("terminal status mutated by completion to %s", got.Status)
	}
}

func TestCompletionBeforeStartCreatesTerminalRecord(t *testing.T) {
	s := newTestStore(50, time.Minute)

	// Patch path: terminal status for an unknown id creates the record.
	s.UpdateTrade("ghost", domain.TradePatch{Status: statusPtr(domain.TradeStatusSuccess), Profit: floatPtr(7)})
	got, ok := s.TradeByID("ghost")
	if !ok {
		t.Fatal("terminal patch for unknown id did not create a record")
	}
	if got.Status != domain.TradeStatusSuccess || got.Profit != 7 {
		t.Errorf("created record = %+v", got)
	}

	// Non-terminal patch for an unknown id is dropped.
	s.UpdateTrade("ghost2", domain.TradePatch{Profit: floatPtr(1)})
	if _, ok := s.TradeByID("ghost2"); ok {
		t.Error("non-terminal patch for unknown id created a record")
	}

	// Late-arriving start event for the completed trade is a no-op insert.
	s.AddTrade(pendingTrade("ghost", 500))
	got, _ = s.TradeByID("ghost")
	if got.Status != domain.TradeStatusSuccess {
		t.Errorf("late start event reverted trade to %s", got.Status)
	}
}

func TestCompleteTradeKeepsOriginalTimestamp(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.AddTrade(pendingTrade("t1", 12345))

	done := domain.Trade{ID: "t1", Status: domain.TradeStatusFailed} // no timestamp
	s.CompleteTrade(done)

	got, _ := s.TradeByID("t1")
	if got.Timestamp != 12345 {
		t.Errorf("timestamp = %d, want original 12345", got.Timestamp)
	}
	if got.Status != domain.TradeStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
}

func TestCompleteTradeNonTerminalDropped(t *testing.T) {
	s := newTestStore(50, time.Minute)
	if s.CompleteTrade(pendingTrade("t1", 1000)) {
		t.Error("non-terminal completion payload reported as applied")
	}
	if _, ok := s.TradeByID("t1"); ok {
		t.Error("non-terminal completion payload created a trade")
	}
}

func TestCompleteTradeReportsApplied(t *testing.T) {
	s := newTestStore(50, time.Minute)

	done := pendingTrade("t1", 1000)
	done.Status = domain.TradeStatusSuccess
	if !s.CompleteTrade(done) {
		t.Error("first completion not reported as applied")
	}
	if s.CompleteTrade(done) {
		t.Error("duplicate completion reported as applied")
	}
}

func TestStoreMetricsWiring(t *testing.T) {
	m := observability.DefaultMetrics
	evictedBefore := testutil.ToFloat64(m.OpportunitiesEvicted)
	staleBefore := testutil.ToFloat64(m.StaleTradePatches)

	s := newTestStore(2, time.Minute)
	s.AddOpportunity(opp("o1", 1000))
	s.AddOpportunity(opp("o2", 2000))
	s.AddOpportunity(opp("o3", 3000))

	if delta := testutil.ToFloat64(m.OpportunitiesEvicted) - evictedBefore; delta != 1 {
		t.Errorf("evicted counter delta = %v, want 1", delta)
	}
	if got := testutil.ToFloat64(m.OpportunitiesTracked); got != 2 {
		t.Errorf("opportunities gauge = %v, want 2", got)
	}

	s.AddTrade(pendingTrade("t1", 1000))
	if got := testutil.ToFloat64(m.TradesTracked); got != 1 {
		t.Errorf("trades gauge = %v, want 1", got)
	}

	s.UpdateTrade("t1", domain.TradePatch{Status: statusPtr(domain.TradeStatusSuccess)})
	s.UpdateTrade("t1", domain.TradePatch{Profit: floatPtr(1)})
	if delta := testutil.ToFloat64(m.StaleTradePatches) - staleBefore; delta != 1 {
		t.Errorf("stale patch counter delta = %v, want 1", delta)
	}
}

func TestTradesNewestFirst(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.SetTrades([]domain.Trade{pendingTrade("a", 1000), pendingTrade("c", 3000), pendingTrade("b", 2000)})

	got := s.Trades()
	if got[0].ID != "c" || got[1].ID != "b" || got[2].ID != "a" {
		t.Errorf("order = [%s %s %s], want [c b a]", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestSeedGuard(t *testing.T) {
	s := newTestStore(50, time.Minute)

	status := domain.AgentStatus{State: domain.AgentStatePaused}
	if !s.Seed(status, []domain.Opportunity{opp("o1", 1000)}, nil, domain.Portfolio{TotalValue: 100}, domain.AIInsights{}) {
		t.Fatal("first seed not applied")
	}
	if len(s.Opportunities()) != 1 {
		t.Fatal("seed data missing")
	}

	// Second seed is a no-op.
	if s.Seed(status, []domain.Opportunity{opp("o2", 2000)}, nil, domain.Portfolio{}, domain.AIInsights{}) {
		t.Error("second seed applied")
	}
	if len(s.Opportunities()) != 1 {
		t.Error("second seed mutated state")
	}
}

func TestSeedSkippedAfterStreamData(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.SetAgentStatus(domain.AgentStatus{State: domain.AgentStateActive})

	if s.Seed(domain.AgentStatus{State: domain.AgentStatePaused}, nil, nil, domain.Portfolio{}, domain.AIInsights{}) {
		t.Fatal("seed applied over stream data")
	}
	if got := s.AgentStatus(); got.State != domain.AgentStateActive {
		t.Errorf("stream status overwritten: %s", got.State)
	}
}

func TestOnChangeSubscription(t *testing.T) {
	s := newTestStore(50, time.Minute)

	calls := 0
	unsub := s.OnChange(func() { calls++ })

	s.AddOpportunity(opp("o1", 1000))
	s.SetPortfolio(domain.Portfolio{TotalValue: 1})
	if calls != 2 {
		t.Errorf("listener called %d times, want 2", calls)
	}

	unsub()
	s.AddOpportunity(opp("o2", 2000))
	if calls != 2 {
		t.Errorf("listener called after unsubscribe: %d", calls)
	}
}

func TestReadersReturnCopies(t *testing.T) {
	s := newTestStore(50, time.Minute)
	s.SetAgentStatus(domain.AgentStatus{State: domain.AgentStateActive, TotalProfit: 10})

	st := s.AgentStatus()
	st.TotalProfit = 999

	if got := s.AgentStatus(); got.TotalProfit != 10 {
		t.Errorf("store mutated through returned copy: %f", got.TotalProfit)
	}
}

func TestConcurrentMutations(t *testing.T) {
	s := newTestStore(100, time.Minute)
	done := make(chan struct{})

	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				s.AddOpportunity(opp(id, int64(i)))
				s.AddTrade(pendingTrade(id, int64(i)))
				s.Trades()
				s.Opportunities()
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	if n := len(s.Trades()); n != 200 {
		t.Errorf("trade count = %d, want 200", n)
	}
}
