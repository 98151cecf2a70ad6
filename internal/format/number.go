package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/currency"
)

// en-US currency symbols. Codes not listed render as "CODE 1,234.50".
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"CAD": "CA$",
	"AUD": "A$",
	"CNY": "CN¥",
	"KRW": "₩",
	"BRL": "R$",
	"MXN": "MX$",
}

// humanize renders through int64; beyond this magnitude grouping is skipped.
const maxGroupable = 1e15

func currencyCode(f *api.FieldFormat) string {
	code := strings.ToUpper(strings.TrimSpace(f.Currency))
	if code == "" {
		return defaultCurrency
	}
	return code
}

func formatCurrency(n float64, code string, digits int) string {
	prefix := code + " "
	if unit, err := currency.ParseISO(code); err == nil {
		if sym, ok := currencySymbols[unit.String()]; ok {
			prefix = sym
		}
	}
	sign := ""
	if n < 0 {
		sign = "-"
	}
	return sign + prefix + grouped(math.Abs(n), digits, digits)
}

// formatPercentage scales fractions (-1 < raw < 1) by 100. The comparison is
// made on the raw value rather than the extracted number, so "0.5" scales but
// "0.5%" does not. A value already in percent units below 1 ("0.5 meaning
// half a percent") is scaled too; callers depend on that.
func formatPercentage(n float64, raw jsonval.Value, digits int) string {
	if r, ok := rawNumber(raw); ok && r > -1 && r < 1 {
		n *= 100
	}
	return strconv.FormatFloat(n, 'f', digits, 64) + "%"
}

// rawNumber is the numeric sense of a JSON value under loose comparison:
// numbers as-is, numeric strings parsed, booleans as 0/1.
func rawNumber(v jsonval.Value) (float64, bool) {
	switch v.Kind() {
	case jsonval.Number:
		return v.Float(), true
	case jsonval.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		return n, err == nil
	case jsonval.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// grouped renders n with thousands separators and between lo and hi fraction
// digits: hi digits are rendered, then trailing zeros are trimmed down to lo.
func grouped(n float64, lo, hi int) string {
	if math.Abs(n) >= maxGroupable {
		return strconv.FormatFloat(n, 'f', hi, 64)
	}
	pattern := "#,###."
	if hi > 0 {
		pattern += strings.Repeat("#", hi)
	}
	s := humanize.FormatFloat(pattern, n)
	if lo >= hi {
		return s
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s
	}
	keep := dot + 1 + lo
	trimmed := strings.TrimRight(s[dot+1:], "0")
	if dot+1+len(trimmed) > keep {
		keep = dot + 1 + len(trimmed)
	}
	s = s[:keep]
	return strings.TrimSuffix(s, ".")
}
