package memory

import (
	"context"
	"sync"

	ports "busta/internal/sheets"
)

// Store is an in-memory PlanWriter used by tests and the dev backend.
type Store struct {
	mu   sync.Mutex
	rows []ports.PlanRow
}

var _ ports.PlanWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) WritePlanRows(ctx context.Context, rows []ports.PlanRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of everything written so far.
func (s *Store) Rows() []ports.PlanRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ports.PlanRow, len(s.rows))
	copy(out, s.rows)
	return out
}
