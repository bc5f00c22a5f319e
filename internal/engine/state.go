package engine

import (
	"sync"

	"SignalFlow/internal/domain/models"
)

// StateArena keeps the previous snapshot per (table, entity) so conditions can
// look at consecutive pairs. Safe for concurrent use; both engine variants
// share one arena per table set.
type StateArena struct {
	mu   sync.Mutex
	prev map[string]map[models.EntityKey]models.Snapshot
}

func NewStateArena() *StateArena {
	return &StateArena{prev: make(map[string]map[models.EntityKey]models.Snapshot)}
}

// Swap stores cur as the new previous snapshot for its table and entity, and
// returns the snapshot it replaced. nil means first sighting.
func (a *StateArena) Swap(cur models.Snapshot) *models.Snapshot {
	key := cur.Entity()

	a.mu.Lock()
	defer a.mu.Unlock()

	byEntity, ok := a.prev[cur.Table]
	if !ok {
		byEntity = make(map[models.EntityKey]models.Snapshot)
		a.prev[cur.Table] = byEntity
	}
	old, seen := byEntity[key]
	byEntity[key] = cur
	if !seen {
		return nil
	}
	return &old
}

// Len returns the number of tracked entities across all tables.
func (a *StateArena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, m := range a.prev {
		n += len(m)
	}
	return n
}
