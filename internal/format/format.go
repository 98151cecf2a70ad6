// Package format renders field values for display.
//
// Every function here is total: it returns a string for any input and never
// panics. Values that cannot be interpreted as the requested kind fall back to
// their plain string form.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Placeholder is shown for missing, null and empty values.
const Placeholder = "-"

const (
	defaultCurrency = "USD"
	defaultFixed    = 2 // currency and percentage
	defaultMaxFrac  = 2 // number, when decimals is unset
)

// Formatter formats values. Now supplies the clock used by relative dates and
// by date previews; Location is the zone used for short dates.
type Formatter struct {
	Now      func() time.Time
	Location *time.Location
}

// New returns a Formatter on the wall clock and local zone.
func New() *Formatter {
	return &Formatter{Now: time.Now, Location: time.Local}
}

var std = New()

// Format formats v with the wall-clock formatter.
func Format(v jsonval.Value, f *api.FieldFormat) string {
	return std.Format(v, f)
}

// Preview formats sample with the wall-clock formatter.
func Preview(sample jsonval.Value, f *api.FieldFormat) string {
	return std.Preview(sample, f)
}

// Format renders v according to f. A nil f formats as text.
func (fm *Formatter) Format(v jsonval.Value, f *api.FieldFormat) string {
	switch {
	case v.IsAbsent(), v.IsNull():
		return Placeholder
	case v.IsString() && v.Str() == "":
		return Placeholder
	}
	if f == nil || f.Kind == "" || f.Kind == api.KindText {
		return v.String()
	}
	raw := v.String()
	switch f.Kind {
	case api.KindCurrency:
		n, ok := extractNumber(raw)
		if !ok {
			return raw
		}
		return formatCurrency(n, currencyCode(f), decimals(f, defaultFixed))
	case api.KindPercentage:
		n, ok := extractNumber(raw)
		if !ok {
			return raw
		}
		return formatPercentage(n, v, decimals(f, defaultFixed))
	case api.KindNumber:
		n, ok := extractNumber(raw)
		if !ok {
			return raw
		}
		lo, hi := 0, defaultMaxFrac
		if f.Decimals != nil {
			lo, hi = clampDecimals(*f.Decimals), clampDecimals(*f.Decimals)
		}
		return f.Prefix + grouped(n, lo, hi) + f.Suffix
	case api.KindDate:
		t, ok := ParseTime(v, fm.location())
		if !ok {
			return raw
		}
		return fm.date(t, f.DateFormat)
	}
	return raw
}

// Preview is Format, with a canned sample per kind when sample is absent.
func (fm *Formatter) Preview(sample jsonval.Value, f *api.FieldFormat) string {
	if sample.IsAbsent() {
		sample = fm.sampleFor(kindOf(f))
	}
	return fm.Format(sample, f)
}

func (fm *Formatter) sampleFor(kind api.FormatKind) jsonval.Value {
	switch kind {
	case api.KindCurrency:
		return jsonval.NumberValue(1234.56)
	case api.KindPercentage:
		return jsonval.NumberValue(0.1234)
	case api.KindNumber:
		return jsonval.NumberValue(1234567.89)
	case api.KindDate:
		return jsonval.StringValue(fm.now().UTC().Format(time.RFC3339Nano))
	}
	return jsonval.StringValue("Sample Text")
}

// Defaults fills the modifiers left unset in f with the values Format uses
// for them. Number decimals stay unset: an unset count keeps up to two
// fraction digits, which no single fixed count reproduces.
func Defaults(f api.FieldFormat) api.FieldFormat {
	if f.Kind == "" {
		f.Kind = api.KindText
	}
	switch f.Kind {
	case api.KindCurrency:
		if f.Currency == "" {
			f.Currency = defaultCurrency
		}
		if f.Decimals == nil {
			d := defaultFixed
			f.Decimals = &d
		}
	case api.KindPercentage:
		if f.Decimals == nil {
			d := defaultFixed
			f.Decimals = &d
		}
	case api.KindDate:
		if f.DateFormat == "" {
			f.DateFormat = api.DateStyleShort
		}
	}
	return f
}

func kindOf(f *api.FieldFormat) api.FormatKind {
	if f == nil || f.Kind == "" {
		return api.KindText
	}
	return f.Kind
}

func decimals(f *api.FieldFormat, def int) int {
	if f.Decimals == nil {
		return def
	}
	return clampDecimals(*f.Decimals)
}

// clampDecimals keeps precision in the range number formatters accept.
func clampDecimals(d int) int {
	switch {
	case d < 0:
		return 0
	case d > 9:
		return 9
	}
	return d
}

// extractNumber strips everything but digits, '.' and '-' and parses the rest.
func extractNumber(raw string) (float64, bool) {
	var sb strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			sb.WriteRune(r)
		}
	}
	return leadingFloat(sb.String())
}

// leadingFloat parses the longest numeric prefix of s, the way lenient
// number parsers do ("1.2.3" is 1.2, "12-3" is 12).
func leadingFloat(s string) (float64, bool) {
	end, digits, dot := 0, 0, false
scan:
	for i, r := range s {
		switch {
		case r == '-' && i == 0:
		case r == '.' && !dot:
			dot = true
		case r >= '0' && r <= '9':
			digits++
		default:
			break scan
		}
		end = i + 1
	}
	if digits == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func (fm *Formatter) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

func (fm *Formatter) location() *time.Location {
	if fm.Location == nil {
		return time.Local
	}
	return fm.Location
}
