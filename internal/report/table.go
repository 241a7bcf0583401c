package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// WriteTable writes a pipe table whose columns line up on a terminal, with
// double-width CJK characters counted as two cells.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	for _, line := range tableLines(header, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func tableLines(header []string, rows [][]string) []string {
	widths := make([]int, len(header))
	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := runewidth.StringWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(header)
	for _, row := range rows {
		measure(row)
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	line := func(row []string, sep bool) string {
		var sb strings.Builder
		sb.WriteString("|")
		for j, width := range widths {
			sb.WriteString(" ")
			if sep {
				sb.WriteString(strings.Repeat("-", width))
			} else {
				cell := ""
				if j < len(row) {
					cell = row[j]
				}
				sb.WriteString(runewidth.FillRight(cell, width))
			}
			sb.WriteString(" |")
		}
		return sb.String()
	}

	out := []string{line(header, false), line(nil, true)}
	for _, row := range rows {
		out = append(out, line(row, false))
	}
	return out
}
