package infer

import (
	"math"
	"strconv"
	"strings"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Name hints, checked in this order. First match wins.
var kindHints = []struct {
	kind  api.FormatKind
	words []string
}{
	{api.KindCurrency, []string{"price", "cost", "amount", "value", "usd", "dollar"}},
	{api.KindPercentage, []string{"percent", "rate", "ratio", "change"}},
	{api.KindDate, []string{"date", "time", "created", "updated"}},
}

// Classify guesses the display kind of a field from the last segment of its
// path and a sample value. It is a starting point for the user, not ground
// truth.
func Classify(path string, sample jsonval.Value) api.FormatKind {
	name := strings.ToLower(fieldpath.LastSegment(path))
	for _, h := range kindHints {
		for _, w := range h.words {
			if strings.Contains(name, w) {
				return h.kind
			}
		}
	}
	if IsNumeric(sample) {
		return api.KindNumber
	}
	return api.KindText
}

// IsNumeric reports whether v is a number or a string that parses fully to a
// finite number.
func IsNumeric(v jsonval.Value) bool {
	switch v.Kind() {
	case jsonval.Number:
		return true
	case jsonval.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
	}
	return false
}
