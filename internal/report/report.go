// Package report renders stored run reports for people: markdown for
// files, HTML for browsers and aligned tables for the terminal.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders run reports, newest first, one section per run.
func Markdown(reports []database.RunReport) string {
	if len(reports) == 0 {
		return "# kokkaisync runs\n\nNo runs recorded yet.\n"
	}

	var sb strings.Builder
	sb.WriteString("# kokkaisync runs\n")
	for _, r := range reports {
		fmt.Fprintf(&sb, "\n## %s %s\n\n", r.Kind, database.FormatPeriodDisplay(r.PeriodID))

		finished := "-"
		if r.FinishedAt != nil {
			finished = *r.FinishedAt
		}
		fmt.Fprintf(&sb, "- run: `%s`\n- status: **%s**\n- started: %s\n- finished: %s\n",
			r.RunID, r.Status, r.StartedAt, finished)
		fmt.Fprintf(&sb, "- fetched: %d, malformed: %d, linked: %d\n", r.Fetched, r.Malformed, r.Linked)
		if r.ErrorText != nil && *r.ErrorText != "" {
			fmt.Fprintf(&sb, "- error: %s\n", strings.ReplaceAll(*r.ErrorText, "\n", "; "))
		}

		if len(r.Counts) > 0 {
			sb.WriteString("\n")
			for _, line := range tableLines(CountsHeader, CountsRows(r.Counts)) {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// HTML converts markdown to a standalone HTML page.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"ja\"><head><meta charset=\"utf-8\"><title>kokkaisync runs</title></head><body>\n")
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.String(), nil
}

// CountsHeader is the column header for per-entity counts.
var CountsHeader = []string{"entity", "inserted", "updated", "unchanged", "dropped", "failed"}

// CountsRows turns per-entity counts into table rows.
func CountsRows(counts []database.EntityCounts) [][]string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{
			c.Entity,
			strconv.Itoa(c.Inserted),
			strconv.Itoa(c.Updated),
			strconv.Itoa(c.Unchanged),
			strconv.Itoa(c.Dropped),
			strconv.Itoa(c.Failed),
		}
	}
	return rows
}
