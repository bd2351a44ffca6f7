package progress

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// ProgressSource serves the authoritative server snapshot. Any error, including
// not-found, is treated the same way by the Reconciler.
type ProgressSource interface {
	GetProgress(ctx context.Context, pathID, slug string) (*types.PathProgress, error)
}

type Policy string

const (
	// PolicyReplace lets the fetched snapshot replace the local record wholesale
	// (last fetch wins). A local edit made while the fetch was in flight is lost.
	// This is the default.
	PolicyReplace Policy = "replace"
	// PolicyMerge keeps, per item, whichever copy has the later UpdatedAt, so an
	// in-flight local edit survives. Opt-in.
	PolicyMerge Policy = "merge"
)

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyReplace, nil
	case PolicyReplace, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("reconcile policy %q: %w", raw, apierr.ErrInvalidArgument)
	}
}

// Reconciled proves a reconcile attempt finished for a key, whether or not the fetch
// succeeded. Only the Reconciler mints it.
type Reconciled struct {
	key     types.Key
	fetched bool
	err     error
}

func (r Reconciled) Key() types.Key { return r.key }

// Fetched reports whether server state was applied.
func (r Reconciled) Fetched() bool { return r.fetched }

// Err is the swallowed fetch/apply failure, for logging and tests only.
func (r Reconciled) Err() error { return r.err }

type Reconciler struct {
	store  *Store
	source ProgressSource
	policy Policy
	log    *logger.Logger
	tracer trace.Tracer
}

func NewReconciler(store *Store, source ProgressSource, policy Policy, baseLog *logger.Logger) *Reconciler {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if policy == "" {
		policy = PolicyReplace
	}
	return &Reconciler{
		store:  store,
		source: source,
		policy: policy,
		log:    baseLog.With("module", "ProgressReconciler"),
		tracer: otel.Tracer("github.com/yungbote/pathprogress/internal/modules/progress"),
	}
}

func (r *Reconciler) Policy() Policy { return r.policy }

// Reconcile pulls the server snapshot for an initialized key and applies it under the
// configured policy. It never fails: on any error the local record is left as it was
// and keeps being served.
func (r *Reconciler) Reconcile(ctx context.Context, init Initialized) Reconciled {
	key := init.Key()
	ctx, span := r.tracer.Start(ctx, "progress.reconcile", trace.WithAttributes(
		attribute.String("path_id", key.PathID),
		attribute.String("slug", key.Slug),
		attribute.String("policy", string(r.policy)),
	))
	defer span.End()

	out := Reconciled{key: key}
	if r.source == nil {
		return out
	}

	remote, err := r.source.GetProgress(ctx, key.PathID, key.Slug)
	if err == nil {
		err = checkSnapshot(key, remote)
	}
	if err != nil {
		r.log.Warn("progress reconcile skipped, serving cached state", "path_id", key.PathID, "slug", key.Slug, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		out.err = err
		return out
	}

	applied, err := r.store.apply(ctx, key, func(local *types.PathProgress) *types.PathProgress {
		if r.policy == PolicyMerge {
			return mergeSnapshot(key, local, remote)
		}
		return replaceSnapshot(local, remote)
	})
	if err != nil {
		// The in-memory record is already updated; only the durable write failed.
		r.log.Warn("reconciled progress not persisted", "path_id", key.PathID, "error", err)
		out.err = err
	}
	out.fetched = true
	span.SetAttributes(attribute.Int("items", applied))
	return out
}

func checkSnapshot(key types.Key, p *types.PathProgress) error {
	if p == nil {
		return fmt.Errorf("%w: empty body", errMalformedSnapshot)
	}
	if p.PathID != "" && p.PathID != key.PathID {
		return fmt.Errorf("%w: path id %q, want %q", errMalformedSnapshot, p.PathID, key.PathID)
	}
	if p.Slug != "" && p.Slug != key.Slug {
		return fmt.Errorf("%w: slug %q, want %q", errMalformedSnapshot, p.Slug, key.Slug)
	}
	for id, it := range p.Items {
		if strings.TrimSpace(id) == "" || !it.Status.Valid() {
			return fmt.Errorf("%w: item %q status %q", errMalformedSnapshot, id, it.Status)
		}
	}
	return nil
}

// replaceSnapshot takes the server items wholesale. Counters are recomputed later from
// those items; the only thing kept from the local record is its TotalItems baseline.
func replaceSnapshot(local, remote *types.PathProgress) *types.PathProgress {
	next := remote.Clone()
	next.TotalItems = 0
	if local != nil {
		next.TotalItems = local.TotalItems
		if next.LastAccessed.IsZero() {
			next.LastAccessed = local.LastAccessed
		}
	}
	return next
}

func mergeSnapshot(key types.Key, local, remote *types.PathProgress) *types.PathProgress {
	var next *types.PathProgress
	if local != nil {
		next = local
	} else {
		next = types.New(key, 0, remote.LastAccessed)
	}
	for id, theirs := range remote.Clone().Items {
		mine, ok := next.Items[id]
		if !ok || !theirs.UpdatedAt.Before(mine.UpdatedAt) {
			next.Items[id] = theirs
		}
	}
	if remote.LastAccessed.After(next.LastAccessed) {
		next.LastAccessed = remote.LastAccessed
	}
	return next
}
