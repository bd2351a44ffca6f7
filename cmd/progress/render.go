package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress/keys"
)

type pathList []*curriculum.Path

var statusMarks = map[types.Status]string{
	types.StatusPending:    "[ ]",
	types.StatusInProgress: "[~]",
	types.StatusDone:       "[x]",
	types.StatusSkip:       "[-]",
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderView(w io.Writer, v progress.PathView) error {
	var b strings.Builder
	offline := ""
	if !v.Synced {
		offline = " (offline)"
	}
	fmt.Fprintf(&b, "%s  %d%%  %d/%d items  %s%s\n", v.Title, v.Percent, v.Completed, v.Total, v.Status, offline)
	for _, s := range v.Sections {
		done := ""
		if s.IsComplete {
			done = "  complete"
		}
		fmt.Fprintf(&b, "\n%s  (%s, %d/%d)%s\n", s.Label, s.Duration, s.Completed, s.Total, done)
		for _, it := range s.Items {
			fmt.Fprintf(&b, "  %s %s  %s\n", statusMarks[it.Status], it.ID, it.Title)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderPaths(w io.Writer, rows pathList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tSTATUS\tPROGRESS\tTITLE")
	for _, p := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", p.ID, keys.Slug(p.Title), p.Status, p.Progress, p.Title)
	}
	return tw.Flush()
}
