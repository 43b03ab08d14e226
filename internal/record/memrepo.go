package record

import (
	"context"
	"sort"
	"sync"
)

// memrepo is the in-memory repository used when no database is configured,
// and by tests.
type memrepo struct {
	mu sync.RWMutex

	byID   map[string]*Result
	byRoom map[string][]*Result // append order, latest last
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:   make(map[string]*Result),
		byRoom: make(map[string][]*Result),
	}
}

func (m *memrepo) InsertResult(ctx context.Context, res *Result) error {
	if res == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[res.ID]; exists {
		return nil
	}
	cp := *res
	cp.MovesSAN = append([]string(nil), res.MovesSAN...)
	m.byID[res.ID] = &cp
	m.byRoom[res.Room] = append(m.byRoom[res.Room], &cp)
	return nil
}

func (m *memrepo) RecentResults(ctx context.Context, room string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.byRoom[room]
	if len(list) == 0 {
		return []*Result{}, nil
	}
	items := append([]*Result(nil), list...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].EndedAt.After(items[j].EndedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]*Result, len(items))
	for i, r := range items {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (m *memrepo) RoomStats(ctx context.Context, room string) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &Stats{Room: room}
	for _, r := range m.byRoom[room] {
		stats.Games++
		switch r.Outcome {
		case "checkmate":
			stats.Checkmates++
		case "stalemate":
			stats.Stalemates++
		case "draw":
			stats.Draws++
		case "resigned":
			stats.Resignations++
		}
		if r.EndedAt.After(stats.LastPlayedAt) {
			stats.LastPlayedAt = r.EndedAt
			stats.LastOutcome = r.Outcome
		}
	}
	return stats, nil
}
