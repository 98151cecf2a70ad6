package project

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentic-research/dashlens/internal/jsonval"
)

// OHLCV field names as they appear on a projected point.
const (
	FieldOpen   = "open"
	FieldHigh   = "high"
	FieldLow    = "low"
	FieldClose  = "close"
	FieldVolume = "volume"
)

// Series is a projected time series, oldest point first.
type Series struct {
	// Key names the map the points were read from.
	Key    string          `json:"key"`
	Points []jsonval.Value `json:"points"`
	// OHLC is set when the first point carries open, high, low and close.
	OHLC bool `json:"ohlc"`
}

// numbering matches the "1. " style prefixes some APIs put on record keys.
var numbering = regexp.MustCompile(`^\d+\.\s*`)

// ProjectSeries expands the homogeneous date-keyed map of doc into at most MaxPoints
// points. The map is located as Table locates it, so fields naming a map by
// wildcard prefix select it. Maps list the latest entry first, so the retained entries are
// reversed. Each point is {date: key, ...record} with OHLCV sub-keys renamed
// to their bare names and coerced to numbers; other sub-keys are kept as is.
func ProjectSeries(doc jsonval.Value, fields []string) Series {
	src, ok := seriesMap(doc, fields)
	if !ok {
		return Series{Points: []jsonval.Value{}}
	}
	entries := src.m.Members()
	if len(entries) > MaxPoints {
		entries = entries[:MaxPoints]
	}
	s := Series{Key: src.base, Points: make([]jsonval.Value, len(entries))}
	for i, e := range entries {
		s.Points[len(entries)-1-i] = point(e)
	}
	s.OHLC = len(s.Points) > 0 && hasOHLC(s.Points[0])
	return s
}

func point(e jsonval.Member) jsonval.Value {
	members := []jsonval.Member{{Key: DateField, Value: jsonval.StringValue(e.Key)}}
	for _, m := range e.Value.Members() {
		name, ok := ohlcvName(m.Key)
		if !ok {
			members = append(members, m)
			continue
		}
		v := m.Value
		if n, ok := toNumber(v); ok {
			if name == FieldVolume {
				n = math.Trunc(n)
			}
			v = jsonval.NumberValue(n)
		}
		members = append(members, jsonval.Member{Key: name, Value: v})
	}
	return jsonval.ObjectValue(members...)
}

// ohlcvName maps "4. close", "Close" and "close" to "close".
func ohlcvName(key string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(numbering.ReplaceAllString(key, "")))
	switch name {
	case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume:
		return name, true
	}
	return "", false
}

func toNumber(v jsonval.Value) (float64, bool) {
	switch v.Kind() {
	case jsonval.Number:
		return v.Float(), true
	case jsonval.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str()), 64)
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func hasOHLC(p jsonval.Value) bool {
	for _, k := range []string{FieldOpen, FieldHigh, FieldLow, FieldClose} {
		v, ok := p.Get(k)
		if !ok || !v.IsNumber() {
			return false
		}
	}
	return true
}

// Num returns the numeric field name of a point.
func Num(p jsonval.Value, name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok || !v.IsNumber() {
		return 0, false
	}
	return v.Float(), true
}
