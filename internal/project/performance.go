package project

import (
	"math"

	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Summary condenses a price series into headline figures.
type Summary struct {
	LatestDate    string  `json:"latestDate"`
	Close         float64 `json:"close"`
	Open          float64 `json:"open"`
	DayHigh       float64 `json:"dayHigh"`
	DayLow        float64 `json:"dayLow"`
	PeriodHigh    float64 `json:"periodHigh"`
	PeriodLow     float64 `json:"periodLow"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	AvgVolume     float64 `json:"avgVolume"`
	Points        int     `json:"points"`
}

// Positive reports whether the period closed at or above where it started.
func (s Summary) Positive() bool { return s.Change >= 0 }

// Performance summarises the same entries Series retains. The latest entry
// supplies the day figures and the oldest retained entry is the baseline for
// the change. Missing or non-numeric OHLCV values count as zero.
func Performance(doc jsonval.Value, fields []string) (Summary, bool) {
	src, ok := seriesMap(doc, fields)
	if !ok {
		return Summary{}, false
	}
	entries := src.m.Members()
	if len(entries) == 0 {
		return Summary{}, false
	}
	if len(entries) > MaxPoints {
		entries = entries[:MaxPoints]
	}
	pts := make([]jsonval.Value, len(entries))
	for i, e := range entries {
		pts[i] = point(e)
	}
	val := func(p jsonval.Value, name string) float64 {
		n, _ := Num(p, name)
		return n
	}
	latest, oldest := pts[0], pts[len(pts)-1]
	s := Summary{
		LatestDate: entries[0].Key,
		Close:      val(latest, FieldClose),
		Open:       val(latest, FieldOpen),
		DayHigh:    val(latest, FieldHigh),
		DayLow:     val(latest, FieldLow),
		Volume:     val(latest, FieldVolume),
		Points:     len(pts),
	}
	low, total := math.Inf(1), 0.0
	for _, p := range pts {
		s.PeriodHigh = math.Max(s.PeriodHigh, val(p, FieldHigh))
		low = math.Min(low, val(p, FieldLow))
		total += val(p, FieldVolume)
	}
	if !math.IsInf(low, 1) {
		s.PeriodLow = low
	}
	base := val(oldest, FieldClose)
	s.Change = s.Close - base
	if base > 0 {
		s.ChangePercent = s.Change / base * 100
	}
	s.AvgVolume = math.Round(total / float64(len(pts)))
	return s, true
}
