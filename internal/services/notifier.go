package services

import (
	"context"
	"time"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/ctxutil"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/realtime"
	"github.com/yungbote/pathprogress/internal/realtime/bus"
)

// Notifier announces stored changes to stream subscribers. Delivery is best effort.
type Notifier interface {
	ProgressUpdated(ctx context.Context, p *types.PathProgress)
	PathUpdated(ctx context.Context, path *curriculum.Path)
}

type busNotifier struct {
	bus     bus.Bus
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewNotifier(b bus.Bus, metrics *observability.Metrics, baseLog *logger.Logger) Notifier {
	return &busNotifier{bus: b, metrics: metrics, log: baseLog.With("service", "Notifier")}
}

func (n *busNotifier) ProgressUpdated(ctx context.Context, p *types.PathProgress) {
	if p == nil {
		return
	}
	n.publish(ctx, realtime.SSEMessage{
		Channel: p.PathID,
		Event:   realtime.SSEEventProgressUpdated,
		Data: realtime.ProgressUpdate{
			PathID:         p.PathID,
			Slug:           p.Slug,
			TotalItems:     p.TotalItems,
			CompletedItems: p.CompletedItems,
			TotalProgress:  p.TotalProgress,
			UpdatedAt:      time.Now().UTC(),
		},
	})
}

func (n *busNotifier) PathUpdated(ctx context.Context, path *curriculum.Path) {
	if path == nil {
		return
	}
	n.publish(ctx, realtime.SSEMessage{
		Channel: path.ID.String(),
		Event:   realtime.SSEEventPathUpdated,
		Data: map[string]any{
			"path_id":           path.ID,
			"status":            path.Status,
			"progress":          path.Progress,
			"completed_modules": path.CompletedModules,
			"last_accessed_at":  path.LastAccessedAt,
		},
	})
}

func (n *busNotifier) publish(ctx context.Context, msg realtime.SSEMessage) {
	if n.bus == nil {
		return
	}
	err := n.bus.Publish(ctx, msg)
	n.metrics.IncEventPublished(err == nil)
	if err != nil {
		n.log.Warn("event publish failed", append(ctxutil.LogFields(ctx), "event", msg.Event, "channel", msg.Channel, "error", err)...)
	}
}
