package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/araddon/dateparse"
)

// Bare ISO dates are UTC midnight rather than local midnight.
var isoDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// maxEpochMillis is the range of representable instants (±100,000,000 days).
const maxEpochMillis = 8.64e15

// ParseTime interprets v as an instant. Numbers are epoch milliseconds.
// Strings are parsed leniently; those without a zone are read in loc, except
// bare ISO dates.
func ParseTime(v jsonval.Value, loc *time.Location) (time.Time, bool) {
	switch v.Kind() {
	case jsonval.Number:
		n := v.Float()
		if math.IsNaN(n) || math.Abs(n) > maxEpochMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(n)).In(loc), true
	case jsonval.String:
		return parseTimeString(strings.TrimSpace(v.Str()), loc)
	}
	return time.Time{}, false
}

func parseTimeString(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (fm *Formatter) date(t time.Time, style string) string {
	switch style {
	case api.DateStyleISO:
		return t.UTC().Format("2006-01-02")
	case api.DateStyleRelative:
		return relative(fm.now().Sub(t))
	}
	return t.In(fm.location()).Format("1/2/2006")
}

// relative buckets an age into seconds, minutes, hours or days, flooring
// each unit.
func relative(age time.Duration) string {
	secs := math.Floor(age.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%.0fs ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%.0fm ago", math.Floor(secs/60))
	case secs < 86400:
		return fmt.Sprintf("%.0fh ago", math.Floor(secs/3600))
	}
	return fmt.Sprintf("%.0fd ago", math.Floor(secs/86400))
}
