package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// fold maps full-width ASCII to half-width (so '；' becomes ';' and '／'
// becomes '/') and trims surrounding space.
func fold(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeName folds ideographic spaces and collapses whitespace runs so
// that 「山田　太郎」 and 「山田 太郎 」 share one natural key.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "　", " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(name, " "))
}

// text renders a raw field as a trimmed string. API payloads are decoded
// with UseNumber, so numbers arrive as json.Number.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// optional returns nil for an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseInt parses a possibly full-width integer. An empty value is absent
// and valid; anything else that is not an integer is absent and invalid.
func parseInt(s string) (n *int, ok bool) {
	s = fold(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// splitList splits a ';'-delimited list (full-width delimiters included)
// into trimmed non-empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(fold(s), ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPair splits a "left／right" cell. Without a separator the whole
// value is returned as left.
func splitPair(s string) (left, right string, found bool) {
	left, right, found = strings.Cut(fold(s), "/")
	return strings.TrimSpace(left), strings.TrimSpace(right), found
}

var eraDate = regexp.MustCompile(`^\S*\d+年\s*\d+月\s*\d+日$`)

// committeeOf extracts the committee from a "date／committee" cell. A cell
// without a separator is the committee itself unless it is only a date.
func committeeOf(s string) string {
	left, right, found := splitPair(s)
	if found {
		return right
	}
	if eraDate.MatchString(left) {
		return ""
	}
	return left
}

// resultOf extracts the outcome from a "date／result" cell.
func resultOf(s string) (date, result string) {
	left, right, found := splitPair(s)
	if found {
		return left, right
	}
	if eraDate.MatchString(left) {
		return left, ""
	}
	return "", left
}
