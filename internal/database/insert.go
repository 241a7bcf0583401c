package database

import (
	"context"
	"fmt"
	"strings"
)

// insertIgnore writes rows in one multi-row INSERT and leaves rows whose
// conflict key already exists untouched. It returns how many rows were
// actually inserted.
func (db *DB) insertIgnore(ctx context.Context, table string, cols, conflict []string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tuple := "(" + placeholders(len(cols)) + ")"
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	args := make([]any, 0, len(rows)*len(cols))
	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("%s row %d: %d values for %d columns", table, i, len(row), len(cols))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(conflict, ", "))

	res, err := db.exec(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting %s inserts: %w", table, err)
	}
	return int(n), nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return "?" + strings.Repeat(", ?", n-1)
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
