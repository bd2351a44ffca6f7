package cache

import (
	"context"
	"sync"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
)

// Memory keeps records in process. State does not survive a restart.
type Memory struct {
	mu      sync.Mutex
	records map[string]*types.PathProgress
	saves   int
}

func NewMemory() *Memory {
	return &Memory{records: map[string]*types.PathProgress{}}
}

func (m *Memory) Load(ctx context.Context) (map[string]*types.PathProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.records), nil
}

func (m *Memory) Save(ctx context.Context, records map[string]*types.PathProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = cloneAll(records)
	m.saves++
	return nil
}

// Saves counts Save calls.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneAll(in map[string]*types.PathProgress) map[string]*types.PathProgress {
	out := make(map[string]*types.PathProgress, len(in))
	for k, v := range in {
		if v != nil {
			out[k] = v.Clone()
		}
	}
	return out
}
