package format

import (
	"strings"
	"unicode"

	"github.com/agentic-research/dashlens/internal/fieldpath"
)

// Label turns a field path into a column or card heading: the last segment,
// camelCase split into words, underscores as spaces, first letter upper-cased.
//
//	"quote.changePercent"      -> "Change Percent"
//	"last_trade_price"         -> "Last trade price"
//	"Time Series.*.4. close"   -> "4. close"
func Label(path string) string {
	seg := fieldpath.LastSegment(path)
	rs := []rune(strings.ReplaceAll(seg, "_", " "))
	var sb strings.Builder
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) && wordBoundary(rs, i) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	words := strings.Fields(sb.String())
	if len(words) == 0 {
		return path
	}
	out := []rune(strings.Join(words, " "))
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}

// wordBoundary reports whether the upper-case rune at i starts a new word:
// after a lower-case letter or digit, or as the last capital of an acronym
// that is followed by a lower-case letter ("USDRate" -> "USD Rate").
func wordBoundary(rs []rune, i int) bool {
	prev := rs[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(rs) && unicode.IsLower(rs[i+1])
}
