// Package keys derives the identities progress is tracked under. Curriculum items have
// no durable server ids, so every consumer that needs an item id, module id or path slug
// must come through here; a second copy of any formula would let ids silently diverge.
package keys

import (
	"strconv"
	"strings"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
)

// Slug lower-cases title, collapses every run of characters outside [a-z0-9] into a
// single '-', and trims leading/trailing '-'. Distinct titles may share a slug.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	sep := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
			continue
		}
		sep = true
	}
	return b.String()
}

// ModuleID is the module's own id, or "section-{index}" when the document has none.
func ModuleID(m curriculum.Module, index int) string {
	if id := strings.TrimSpace(m.ID); id != "" {
		return id
	}
	return "section-" + strconv.Itoa(index)
}

// ItemID is "{moduleId}-{kind}-{index}", index being zero-based within the kind's array.
func ItemID(moduleID string, kind curriculum.ItemKind, index int) string {
	return moduleID + "-" + string(kind) + "-" + strconv.Itoa(index)
}
