// Package ingest loads JSON documents for the command line and narrows them
// with JSONPath selectors.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentic-research/dashlens/internal/fetch"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/ohler55/ojg/oj"
)

// ErrInvalidJSON is returned when a file or stdin is not one JSON document.
var ErrInvalidJSON = errors.New("input is not valid JSON")

// Source describes where a document comes from.
type Source struct {
	// Location is an http(s) URL, a file path, or "-" for Stdin.
	Location string
	// Headers are sent with URL requests.
	Headers map[string]string
	// Select is an optional JSONPath applied after loading.
	Select string
}

// IsURL reports whether loc is fetched over HTTP.
func IsURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// Load reads src, parsing it with key order preserved, and applies its
// selector. URLs go through f; stdin is read from in.
func Load(ctx context.Context, src Source, f Fetcher, in io.Reader) (jsonval.Value, error) {
	var (
		doc jsonval.Value
		err error
	)
	switch {
	case IsURL(src.Location):
		if f == nil {
			return jsonval.Value{}, fmt.Errorf("load %s: no fetcher configured", src.Location)
		}
		doc, err = f.Fetch(ctx, fetch.Request{URL: src.Location, Headers: src.Headers})
	case src.Location == "-":
		doc, err = parseReader(in, "stdin")
	default:
		var file *os.File
		file, err = os.Open(src.Location)
		if err != nil {
			return jsonval.Value{}, fmt.Errorf("open %s: %w", src.Location, err)
		}
		defer func() { _ = file.Close() }()
		doc, err = parseReader(file, src.Location)
	}
	if err != nil {
		return jsonval.Value{}, err
	}
	if src.Select == "" {
		return doc, nil
	}
	return Select(doc, src.Select)
}

func parseReader(r io.Reader, name string) (jsonval.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return jsonval.Value{}, fmt.Errorf("read %s: %w", name, err)
	}
	validator := oj.Validator{OnlyOne: true}
	if err := validator.Validate(data); err != nil {
		return jsonval.Value{}, fmt.Errorf("parse %s: %w: %v", name, ErrInvalidJSON, err)
	}
	doc, err := jsonval.Parse(data)
	if err != nil {
		return jsonval.Value{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// ParseHeaders turns "Key=Value" or "Key: Value" pairs into a header map.
func ParseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			k, v, ok = strings.Cut(p, ":")
		}
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q: want key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
