package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yungbote/pathprogress/internal/platform/apierr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusSkip       Status = "skip"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusSkip:
		return true
	}
	return false
}

// ParseStatus accepts the canonical spelling plus "in_progress".
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "in_progress" {
		s = StatusInProgress
	}
	if !s.Valid() {
		return "", fmt.Errorf("status %q: %w", raw, apierr.ErrInvalidArgument)
	}
	return s, nil
}

// Key identifies one PathProgress record.
type Key struct {
	PathID string
	Slug   string
}

// String is the durable cache key, "{pathId}-{slug}".
func (k Key) String() string { return k.PathID + "-" + k.Slug }

type ItemProgress struct {
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// UpdatedAt is the last local or server mutation of this item; merge reconciliation
	// uses it to pick the newer copy.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PathProgress is the per-(path, slug) aggregate. TotalItems, CompletedItems and
// TotalProgress are caches over Items and are only written by Recompute.
type PathProgress struct {
	PathID         string                  `json:"path_id"`
	Slug           string                  `json:"slug"`
	Items          map[string]ItemProgress `json:"items"`
	TotalItems     int                     `json:"total_items"`
	CompletedItems int                     `json:"completed_items"`
	TotalProgress  int                     `json:"total_progress"`
	LastAccessed   time.Time               `json:"last_accessed"`
}

// New returns an empty record for key with a baseline total.
func New(key Key, totalItems int, now time.Time) *PathProgress {
	if totalItems < 0 {
		totalItems = 0
	}
	return &PathProgress{
		PathID:       key.PathID,
		Slug:         key.Slug,
		Items:        map[string]ItemProgress{},
		TotalItems:   totalItems,
		LastAccessed: now,
	}
}

func (p *PathProgress) Key() Key { return Key{PathID: p.PathID, Slug: p.Slug} }

// Recompute refreshes the cached aggregates from Items. TotalItems never decreases.
func (p *PathProgress) Recompute() {
	if p.Items == nil {
		p.Items = map[string]ItemProgress{}
	}
	done := 0
	for _, it := range p.Items {
		if it.Status == StatusDone {
			done++
		}
	}
	p.CompletedItems = done
	if n := len(p.Items); n > p.TotalItems {
		p.TotalItems = n
	}
	p.TotalProgress = Percent(p.CompletedItems, p.TotalItems)
}

// Percent is round(100*completed/total), 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// StatusOf returns the item's status, pending when absent.
func (p *PathProgress) StatusOf(itemID string) Status {
	if p == nil {
		return StatusPending
	}
	if it, ok := p.Items[itemID]; ok && it.Status.Valid() {
		return it.Status
	}
	return StatusPending
}

// Clone deep-copies p so callers never alias store state.
func (p *PathProgress) Clone() *PathProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.Items = make(map[string]ItemProgress, len(p.Items))
	for id, it := range p.Items {
		if it.CompletedAt != nil {
			ts := *it.CompletedAt
			it.CompletedAt = &ts
		}
		out.Items[id] = it
	}
	return &out
}

// emptySlugSegment stands in for an empty slug in URL paths. Derived slugs only
// contain [a-z0-9-], so it cannot collide with a real one.
const emptySlugSegment = "_"

// SlugSegment renders slug as a URL path segment.
func SlugSegment(slug string) string {
	if slug == "" {
		return emptySlugSegment
	}
	return slug
}

// SlugFromSegment reverses SlugSegment.
func SlugFromSegment(seg string) string {
	if seg == emptySlugSegment {
		return ""
	}
	return seg
}
