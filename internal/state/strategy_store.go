package state

import (
	"sync"

	"go.uber.org/zap"

	"arb-console/internal/domain"
	"arb-console/internal/strategy"
)

// StrategyStore holds the preset catalog plus at most one active strategy.
// Edits are local-only: they touch the active copy, never the catalog.
type StrategyStore struct {
	mu      sync.RWMutex
	catalog []domain.Strategy
	active  *domain.Strategy
	logger  *zap.SugaredLogger
}

// NewStrategyStore creates a store seeded with the preset catalog and no
// active strategy.
func NewStrategyStore(logger *zap.SugaredLogger) *StrategyStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StrategyStore{
		catalog: strategy.Presets(),
		logger:  logger,
	}
}

// Catalog returns a copy of the preset catalog.
func (s *StrategyStore) Catalog() []domain.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Strategy(nil), s.catalog...)
}

// SetActive replaces the active strategy reference. The strategy must be a
// catalog entry or a custom variant derived from one.
func (s *StrategyStore) SetActive(st domain.Strategy) {
	st.Active = true
	s.mu.Lock()
	s.active = &st
	s.mu.Unlock()
}

// SetActivePreset activates the pristine catalog entry with the given id.
func (s *StrategyStore) SetActivePreset(id string) error {
	preset, err := strategy.PresetByID(id)
	if err != nil {
		return err
	}
	s.SetActive(preset)
	return nil
}

// Active returns a copy of the active strategy, or nil when none is active.
func (s *StrategyStore) Active() *domain.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	copy := *s.active
	return &copy
}

// Update shallow-merges the patch into the active strategy only. A no-op
// when no strategy is active. Any edit marks the strategy as a custom
// variant of its preset.
func (s *StrategyStore) Update(patch domain.StrategyPatch) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		s.logger.Debugw("strategy update with no active strategy dropped")
		return
	}
	patch.Apply(s.active)
	s.active.RiskLevel = domain.RiskCustom
	s.mu.Unlock()
}

// Reset discards local edits by replacing the active strategy with the
// pristine catalog copy matching its id.
func (s *StrategyStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	preset, err := strategy.PresetByID(s.active.ID)
	if err != nil {
		return err
	}
	preset.Active = true
	s.active = &preset
	return nil
}

// Clear deactivates the current strategy.
func (s *StrategyStore) Clear() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}
