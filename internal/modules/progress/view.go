package progress

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// MetadataSink receives the path summary whenever its percentage changes.
type MetadataSink interface {
	UpdatePathMetadata(ctx context.Context, pathID string, md curriculum.Metadata) error
}

type ItemView struct {
	ID          string              `json:"id"`
	Kind        curriculum.ItemKind `json:"kind"`
	Index       int                 `json:"index"`
	Title       string              `json:"title"`
	Status      types.Status        `json:"status"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type SectionView struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Title      string     `json:"title"`
	Duration   string     `json:"duration"`
	IsExpanded bool       `json:"is_expanded"`
	IsComplete bool       `json:"is_complete"`
	Completed  int        `json:"completed"`
	Total      int        `json:"total"`
	Items      []ItemView `json:"items"`
}

type PathView struct {
	PathID           string        `json:"path_id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	Percent          int           `json:"percent"`
	Completed        int           `json:"completed"`
	Total            int           `json:"total"`
	CompletedModules int           `json:"completed_modules"`
	Status           string        `json:"status"`
	Synced           bool          `json:"synced"`
	Sections         []SectionView `json:"sections"`
}

// StatusForPercent maps a path percentage onto the path metadata status.
func StatusForPercent(percent int) string {
	switch {
	case percent <= 0:
		return curriculum.StatusNotStarted
	case percent >= 100:
		return curriculum.StatusCompleted
	default:
		return curriculum.StatusActive
	}
}

// Builder assembles PathViews and pushes metadata when a path's percentage moves.
type Builder struct {
	store *Store
	sink  MetadataSink
	log   *logger.Logger

	mu          sync.Mutex
	lastPercent map[string]int
}

func NewBuilder(store *Store, sink MetadataSink, baseLog *logger.Logger) *Builder {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Builder{
		store:       store,
		sink:        sink,
		log:         baseLog.With("module", "PathViewBuilder"),
		lastPercent: map[string]int{},
	}
}

// Build composes sections with the reconciled record. Taking Reconciled means the
// initialize and reconcile stages have already run for this key.
func (b *Builder) Build(ctx context.Context, rec Reconciled, title string, sections []Section) PathView {
	key := rec.Key()
	p := b.store.Get(key)
	pc := PathCompletion(p)

	view := PathView{
		PathID:           key.PathID,
		Title:            title,
		Slug:             key.Slug,
		Percent:          pc.Percent,
		Completed:        pc.Completed,
		Total:            pc.Total,
		CompletedModules: CompletedModules(p, sections),
		Status:           StatusForPercent(pc.Percent),
		Synced:           rec.Fetched(),
		Sections:         make([]SectionView, 0, len(sections)),
	}
	for i, s := range sections {
		sc := SectionCompletion(p, s)
		sv := SectionView{
			ID:         s.ModuleID,
			Label:      s.Label,
			Title:      s.Title,
			Duration:   s.Duration,
			IsExpanded: i == 0,
			IsComplete: ModuleCompletion(p, s),
			Completed:  sc.Completed,
			Total:      sc.Total,
			Items:      make([]ItemView, 0, len(s.Items)),
		}
		for _, it := range s.Items {
			iv := ItemView{ID: it.ID, Kind: it.Kind, Index: it.Index, Title: it.Title, Status: p.StatusOf(it.ID)}
			if p != nil {
				iv.CompletedAt = p.Items[it.ID].CompletedAt
			}
			sv.Items = append(sv.Items, iv)
		}
		view.Sections = append(view.Sections, sv)
	}

	b.publish(ctx, view, p)
	return view
}

func (b *Builder) publish(ctx context.Context, view PathView, p *types.PathProgress) {
	if b.sink == nil {
		return
	}
	b.mu.Lock()
	last, seen := b.lastPercent[view.PathID]
	if seen && last == view.Percent {
		b.mu.Unlock()
		return
	}
	b.lastPercent[view.PathID] = view.Percent
	b.mu.Unlock()

	md := curriculum.Metadata{
		Progress:         view.Percent,
		CompletedModules: view.CompletedModules,
		Status:           view.Status,
		LastAccessed:     time.Now().UTC(),
	}
	if p != nil && !p.LastAccessed.IsZero() {
		md.LastAccessed = p.LastAccessed
	}
	if err := b.sink.UpdatePathMetadata(ctx, view.PathID, md); err != nil {
		b.log.Warn("path metadata update failed", "path_id", view.PathID, "error", err)
		b.mu.Lock()
		if b.lastPercent[view.PathID] == view.Percent {
			delete(b.lastPercent, view.PathID)
		}
		b.mu.Unlock()
	}
}
