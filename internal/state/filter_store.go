package state

import (
	"sort"
	"sync"

	"arb-console/internal/domain"
)

// SortField selects the column trade-history is sorted by.
type SortField string

// Sortable trade-history columns.
const (
	SortByTimestamp SortField = "timestamp"
	SortByProfit    SortField = "profit"
	SortByPair      SortField = "pair"
)

// ViewState is the derived trade-history view configuration: filters plus
// pagination and sort. Pure client state with no network effect.
type ViewState struct {
	Filters   domain.TradeFilters `json:"filters"`
	Page      int                 `json:"page"`     // zero-based
	PageSize  int                 `json:"pageSize"` // <=0 means unpaginated
	SortBy    SortField           `json:"sortBy"`
	Ascending bool                `json:"ascending"`
}

// FilterStore holds the trade-history view state for the session.
type FilterStore struct {
	mu   sync.RWMutex
	view ViewState
}

// NewFilterStore creates a filter store with no predicates and timestamp-
// descending sort.
func NewFilterStore() *FilterStore {
	return &FilterStore{view: ViewState{SortBy: SortByTimestamp}}
}

// View returns the current view state.
func (s *FilterStore) View() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetFilters replaces the predicate set and resets pagination to the first
// page.
func (s *FilterStore) SetFilters(f domain.TradeFilters) {
	s.mu.Lock()
	s.view.Filters = f
	s.view.Page = 0
	s.mu.Unlock()
}

// SetPage moves to the given zero-based page.
func (s *FilterStore) SetPage(page, pageSize int) {
	s.mu.Lock()
	if page < 0 {
		page = 0
	}
	s.view.Page = page
	s.view.PageSize = pageSize
	s.mu.Unlock()
}

// SetSort replaces the sort column and direction.
func (s *FilterStore) SetSort(by SortField, ascending bool) {
	s.mu.Lock()
	s.view.SortBy = by
	s.view.Ascending = ascending
	s.mu.Unlock()
}

// Reset clears all predicates and pagination.
func (s *FilterStore) Reset() {
	s.mu.Lock()
	s.view = ViewState{SortBy: SortByTimestamp}
	s.mu.Unlock()
}

// ApplyView filters, sorts and paginates trades per the view state. The
// input slice is not modified. Returns the page plus the total match count
// before pagination.
func ApplyView(trades []domain.Trade, view ViewState) ([]domain.Trade, int) {
	matched := make([]domain.Trade, 0, len(trades))
	for i := range trades {
		if view.Filters.Match(&trades[i]) {
			matched = append(matched, trades[i])
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := &matched[i], &matched[j]
		switch view.SortBy {
		case SortByProfit:
			if view.Ascending {
				return a.Profit < b.Profit
			}
			return a.Profit > b.Profit
		case SortByPair:
			if view.Ascending {
				return a.Pair < b.Pair
			}
			return a.Pair > b.Pair
		default:
			if view.Ascending {
				return a.Timestamp < b.Timestamp
			}
			return a.Timestamp > b.Timestamp
		}
	})

	total := len(matched)
	if view.PageSize <= 0 {
		return matched, total
	}

	start := view.Page * view.PageSize
	if start >= total {
		return []domain.Trade{}, total
	}
	end := start + view.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total
}
