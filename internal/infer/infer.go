// Package infer discovers addressable fields in an unknown JSON document and
// guesses how each one should be displayed.
//
// Discovery looks at one sample document only. Arrays are assumed homogeneous
// (element 0 stands for all of them) and an object whose first value is an
// object is assumed to be a map of same-shaped records (a date-keyed time
// series, say). Both are best-effort guesses: a heterogeneous payload is
// described by whatever its first element looks like.
package infer

import (
	"strings"

	"github.com/agentic-research/dashlens/internal/jsonval"
)

// InferConfig controls field discovery.
type InferConfig struct {
	MaxFields         int      // cap on discovered fields (default 20)
	TimeSeriesMarkers []string // substrings that move a field to the front band
	MetaMarkers       []string // substrings that move a field to the back band
	AutoSelect        int      // number of suggestions pre-selected (default 5)
}

// DefaultInferConfig returns the settings used by the dashboard.
func DefaultInferConfig() InferConfig {
	return InferConfig{
		MaxFields:         20,
		TimeSeriesMarkers: []string{"Time Series"},
		MetaMarkers:       []string{"Meta Data"},
		AutoSelect:        5,
	}
}

// Inferrer runs discovery and classification with a fixed configuration.
type Inferrer struct {
	Config InferConfig
}

// NewInferrer returns an Inferrer with the default configuration.
func NewInferrer() *Inferrer {
	return &Inferrer{Config: DefaultInferConfig()}
}

var defaultInferrer = NewInferrer()

// Discover enumerates field paths of doc with the default configuration.
func Discover(doc jsonval.Value) []string {
	return defaultInferrer.Discover(doc)
}

// IsHomogeneousMap reports whether v is an object whose first member value is
// itself an object, i.e. a map of records such as a date-keyed series.
func IsHomogeneousMap(v jsonval.Value) bool {
	first, ok := v.First()
	return ok && first.Value.IsObject()
}

// Filter returns the fields containing term, case-insensitively.
// An empty term returns fields unchanged.
func Filter(fields []string, term string) []string {
	if term == "" {
		return fields
	}
	term = strings.ToLower(term)
	var out []string
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			out = append(out, f)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
