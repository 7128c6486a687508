package memory

import (
	"context"
	"errors"
	"testing"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

func testTrade(id string, ts int64, pair string) *domain.Trade {
	return &domain.Trade{
		ID:        id,
		Timestamp: ts,
		Pair:      pair,
		Direction: domain.DirectionCexToDex,
		Status:    domain.TradeStatusPending,
		AmountIn:  100,
		TokenIn:   "USDC",
	}
}

func TestTradeHistoryInsert(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	if err := s.Insert(ctx, testTrade("t1", 1000, "ETH/USDC")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := s.Insert(ctx, testTrade("t1", 2000, "ETH/USDC")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Insert(duplicate) error = %v, want ErrDuplicateKey", err)
	}

	if err := s.Insert(ctx, &domain.Trade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(empty id) error = %v, want ErrInvalidInput", err)
	}
	if err := s.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Insert(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestTradeHistoryUpsert(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, testTrade("t1", 1000, "ETH/USDC")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	replaced := testTrade("t1", 1000, "ETH/USDC")
	replaced.Status = domain.TradeStatusSuccess
	replaced.Profit = 12.5
	if err := s.Upsert(ctx, replaced); err != nil {
		t.Fatalf("Upsert(replace) error = %v", err)
	}

	got, err := s.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.TradeStatusSuccess {
		t.Errorf("Status = %s, want %s", got.Status, domain.TradeStatusSuccess)
	}
	if got.Profit != 12.5 {
		t.Errorf("Profit = %f, want 12.5", got.Profit)
	}
}

func TestTradeHistoryGetByID(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}

	orig := testTrade("t1", 1000, "ETH/USDC")
	if err := s.Insert(ctx, orig); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	// Returned value is a copy; mutating it must not affect the store.
	got.Pair = "MUTATED"
	again, _ := s.GetByID(ctx, "t1")
	if again.Pair != "ETH/USDC" {
		t.Errorf("store mutated through returned copy: Pair = %s", again.Pair)
	}
}

func TestTradeHistoryGetByTimeRange(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	for _, tr := range []*domain.Trade{
		testTrade("t1", 1000, "ETH/USDC"),
		testTrade("t2", 2000, "WBTC/USDC"),
		testTrade("t3", 3000, "ETH/USDC"),
	} {
		if err := s.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert(%s) error = %v", tr.ID, err)
		}
	}

	got, err := s.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByTimeRange() returned %d trades, want 2", len(got))
	}
	if got[0].ID != "t2" || got[1].ID != "t1" {
		t.Errorf("order = [%s %s], want [t2 t1]", got[0].ID, got[1].ID)
	}
}

func TestTradeHistoryGetByPair(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	s.Insert(ctx, testTrade("t1", 1000, "ETH/USDC"))
	s.Insert(ctx, testTrade("t2", 2000, "WBTC/USDC"))
	s.Insert(ctx, testTrade("t3", 3000, "ETH/USDC"))

	got, err := s.GetByPair(ctx, "ETH/USDC")
	if err != nil {
		t.Fatalf("GetByPair() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByPair() returned %d trades, want 2", len(got))
	}
	if got[0].ID != "t3" {
		t.Errorf("first trade = %s, want t3 (newest first)", got[0].ID)
	}
}

func TestTradeHistoryGetRecent(t *testing.T) {
	s := NewTradeHistoryStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		s.Insert(ctx, testTrade(string(rune('a'+i)), i*1000, "ETH/USDC"))
	}

	got, err := s.GetRecent(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetRecent(3) returned %d trades, want 3", len(got))
	}
	if got[0].Timestamp != 5000 {
		t.Errorf("first timestamp = %d, want 5000", got[0].Timestamp)
	}

	all, _ := s.GetRecent(ctx, 0)
	if len(all) != 5 {
		t.Errorf("GetRecent(0) returned %d trades, want all 5", len(all))
	}
}
