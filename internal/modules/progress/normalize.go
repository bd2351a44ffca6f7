package progress

import (
	"strconv"
	"strings"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	"github.com/yungbote/pathprogress/internal/modules/progress/keys"
)

// DefaultDuration labels modules whose document carries no duration.
const DefaultDuration = "1 week"

// Item is one trackable unit derived from a module's competencies, resources or assessments.
type Item struct {
	ID       string              `json:"id"`
	ModuleID string              `json:"module_id"`
	Kind     curriculum.ItemKind `json:"kind"`
	Index    int                 `json:"index"`
	Title    string              `json:"title"`
}

// Section wraps one module with its derived items.
type Section struct {
	Index    int    `json:"index"`
	ModuleID string `json:"module_id"`
	Title    string `json:"title"`
	Label    string `json:"label"`
	Duration string `json:"duration"`
	Items    []Item `json:"items"`
}

func (s Section) ItemIDs() []string {
	out := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.ID)
	}
	return out
}

// ModuleItems derives the module's items: competencies, then resources, then
// assessments, each in document order.
func ModuleItems(m curriculum.Module, index int) []Item {
	moduleID := keys.ModuleID(m, index)
	var out []Item
	for _, kind := range curriculum.Kinds {
		for i, e := range m.Entries(kind) {
			out = append(out, Item{
				ID:       keys.ItemID(moduleID, kind, i),
				ModuleID: moduleID,
				Kind:     kind,
				Index:    i,
				Title:    e.Title,
			})
		}
	}
	return out
}

// Normalize flattens doc into sections. A nil document or one without modules yields
// no sections; missing arrays contribute no items.
func Normalize(doc *curriculum.Document) []Section {
	if doc == nil || len(doc.Modules) == 0 {
		return []Section{}
	}
	out := make([]Section, 0, len(doc.Modules))
	for i, m := range doc.Modules {
		title := strings.TrimSpace(m.Title)
		label := "Section " + strconv.Itoa(i+1)
		if title != "" {
			label += ": " + title
		}
		duration := strings.TrimSpace(m.Duration)
		if duration == "" {
			duration = DefaultDuration
		}
		items := ModuleItems(m, i)
		if items == nil {
			items = []Item{}
		}
		out = append(out, Section{
			Index:    i,
			ModuleID: keys.ModuleID(m, i),
			Title:    title,
			Label:    label,
			Duration: duration,
			Items:    items,
		})
	}
	return out
}

func TotalItems(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}

func ItemIDs(sections []Section) []string {
	out := make([]string, 0, TotalItems(sections))
	for _, s := range sections {
		out = append(out, s.ItemIDs()...)
	}
	return out
}

// FindItem looks itemID up across sections.
func FindItem(sections []Section, itemID string) (Item, bool) {
	for _, s := range sections {
		for _, it := range s.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return Item{}, false
}
