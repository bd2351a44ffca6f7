package progress

import (
	types "github.com/yungbote/pathprogress/internal/domain/progress"
)

// Completion is a completed/total roll-up with its rounded percentage.
type Completion struct {
	Percent   int `json:"percent"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// PathCompletion reads the record's cached aggregates, which the Store keeps consistent.
func PathCompletion(p *types.PathProgress) Completion {
	if p == nil {
		return Completion{}
	}
	return Completion{
		Percent:   p.TotalProgress,
		Completed: p.CompletedItems,
		Total:     p.TotalItems,
	}
}

// SectionCompletion counts the section's done items. Items missing from p are pending.
func SectionCompletion(p *types.PathProgress, s Section) Completion {
	done := 0
	for _, id := range s.ItemIDs() {
		if p.StatusOf(id) == types.StatusDone {
			done++
		}
	}
	return Completion{
		Percent:   types.Percent(done, len(s.Items)),
		Completed: done,
		Total:     len(s.Items),
	}
}

// ModuleCompletion is true iff the section has at least one item and all are done.
// Skipped items keep a module incomplete.
func ModuleCompletion(p *types.PathProgress, s Section) bool {
	c := SectionCompletion(p, s)
	return c.Total > 0 && c.Completed == c.Total
}

func CompletedModules(p *types.PathProgress, sections []Section) int {
	n := 0
	for _, s := range sections {
		if ModuleCompletion(p, s) {
			n++
		}
	}
	return n
}
