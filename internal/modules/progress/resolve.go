package progress

import (
	"fmt"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	"github.com/yungbote/pathprogress/internal/modules/progress/keys"
)

// ResolveBySlug scans paths in order and returns the first whose title derives slug.
// Titles are not unique, so later paths sharing the slug are unreachable this way.
func ResolveBySlug(paths []*curriculum.Path, slug string) (*curriculum.Path, error) {
	want := keys.Slug(slug)
	for _, p := range paths {
		if p != nil && keys.Slug(p.Title) == want {
			return p, nil
		}
	}
	return nil, fmt.Errorf("slug %q: %w", slug, ErrPathNotFound)
}

// SlugMatches counts how many paths derive slug; more than one is a collision.
func SlugMatches(paths []*curriculum.Path, slug string) int {
	want := keys.Slug(slug)
	n := 0
	for _, p := range paths {
		if p != nil && keys.Slug(p.Title) == want {
			n++
		}
	}
	return n
}
