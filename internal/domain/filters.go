package domain

import "strings"

// TradeFilters is the optional predicate set for the trade-history view.
// Zero-valued fields do not constrain; set fields combine by logical AND.
type TradeFilters struct {
	Pair          string      `json:"pair,omitempty"`
	Status        TradeStatus `json:"status,omitempty"`
	From          int64       `json:"from,omitempty"` // unix ms, inclusive
	To            int64       `json:"to,omitempty"`   // unix ms, inclusive
	Search        string      `json:"search,omitempty"`
	MinConfidence float64     `json:"minConfidence,omitempty"`
}

// Match reports whether the trade satisfies every set predicate.
func (f TradeFilters) Match(t *Trade) bool {
	if f.Pair != "" && t.Pair != f.Pair {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.From != 0 && t.Timestamp < f.From {
		return false
	}
	if f.To != 0 && t.Timestamp > f.To {
		return false
	}
	if f.MinConfidence > 0 && t.AIConfidence < f.MinConfidence {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Pair), needle) &&
			!strings.Contains(strings.ToLower(t.TxHash), needle) &&
			!strings.Contains(strings.ToLower(t.ID), needle) {
			return false
		}
	}
	return true
}

// IsZero reports whether no predicate is set.
func (f TradeFilters) IsZero() bool {
	return f == TradeFilters{}
}
