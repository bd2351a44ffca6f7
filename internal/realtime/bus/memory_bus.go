package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/yungbote/pathprogress/internal/realtime"
)

// memoryBus delivers within one process, for single-instance runs without Redis.
type memoryBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.SSEMessage)
}

func NewMemoryBus() Bus { return &memoryBus{} }

func (b *memoryBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	// Round-trip through JSON so subscribers see what a Redis subscriber would.
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var out realtime.SSEMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(out)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
