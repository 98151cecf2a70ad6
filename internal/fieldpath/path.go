// Package fieldpath resolves field paths against JSON documents.
//
// Two syntaxes exist. A plain path is dot-separated property names
// ("a.b.c"). A wildcard path has one "*" segment ("a.*.c") and names the key
// "c" inside any child record of the map at "a". The prefix of a wildcard path
// only names the field; at resolution time the suffix is looked up on a
// caller-supplied context record.
//
// Resolution never fails loudly: anything that cannot be resolved is absent.
package fieldpath

import (
	"strconv"
	"strings"

	"github.com/agentic-research/dashlens/internal/jsonval"
)

// WildcardMarker separates the prefix of a wildcard path from its key.
const WildcardMarker = "*."

// Path is a parsed field path.
type Path struct {
	Raw      string
	Wildcard bool
	// Prefix is the map the wildcard ranges over (wildcard paths only).
	Prefix string
	// Key is the literal key looked up on the context record (wildcard paths only).
	Key string
}

// Parse splits a path on the first wildcard marker. Everything after the
// marker is a single literal key, even when it contains dots.
func Parse(raw string) Path {
	i := strings.Index(raw, WildcardMarker)
	if i < 0 {
		return Path{Raw: raw}
	}
	return Path{
		Raw:      raw,
		Wildcard: true,
		Prefix:   strings.TrimSuffix(raw[:i], "."),
		Key:      raw[i+len(WildcardMarker):],
	}
}

// IsWildcard reports whether raw contains the wildcard marker.
func IsWildcard(raw string) bool {
	return strings.Contains(raw, WildcardMarker)
}

// Wildcard builds the path naming sub inside any record of the map prefix.
func Wildcard(prefix, sub string) string {
	return prefix + "." + WildcardMarker + sub
}

// Join appends key to prefix with a dot, or returns key for an empty prefix.
func Join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// LastSegment is the display name of a path: the wildcard key, or the text
// after the last dot.
func LastSegment(raw string) string {
	p := Parse(raw)
	if p.Wildcard {
		return p.Key
	}
	if i := strings.LastIndex(raw, "."); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// Relative strips base (and the following dot) from raw when raw lives under
// base, so a path discovered from the document root can be resolved against a
// row taken from base.
func Relative(raw, base string) string {
	if base == "" {
		return raw
	}
	if rest, ok := strings.CutPrefix(raw, base+"."); ok {
		return rest
	}
	return raw
}

// Resolve returns the value at raw. Plain paths are resolved against doc.
// Wildcard paths look their key up on context and ignore doc; a missing
// context yields absent.
func Resolve(doc jsonval.Value, raw string, context jsonval.Value) (jsonval.Value, bool) {
	p := Parse(raw)
	if p.Wildcard {
		return p.lookupKey(context)
	}
	return resolvePlain(doc, raw)
}

// ResolveInContext resolves raw against the active row of a projection.
// Wildcard keys are read directly off row; plain paths are resolved with row
// as their root.
func ResolveInContext(row jsonval.Value, raw string) (jsonval.Value, bool) {
	return Resolve(row, raw, row)
}

func (p Path) lookupKey(context jsonval.Value) (jsonval.Value, bool) {
	if p.Prefix == "" || p.Key == "" {
		return jsonval.Value{}, false
	}
	return lookup(context, p.Key)
}

// resolvePlain walks raw from doc. A root array that does not resolve the
// path by index reads through to element 0, matching how discovery derives
// paths from the first element of a root array.
func resolvePlain(doc jsonval.Value, raw string) (jsonval.Value, bool) {
	segs := strings.Split(raw, ".")
	for cur := doc; !cur.IsAbsent(); {
		if v, ok := walk(cur, segs); ok {
			return v, true
		}
		if !cur.IsArray() {
			break
		}
		cur, _ = cur.Index(0)
	}
	return jsonval.Value{}, false
}

// walk folds segs over cur. Keys may themselves contain dots ("1. open"), so
// when a single segment is not a key the walk retries with longer runs of
// segments joined back together.
func walk(cur jsonval.Value, segs []string) (jsonval.Value, bool) {
	if len(segs) == 0 {
		return cur, true
	}
	for n := 1; n <= len(segs); n++ {
		next, ok := lookup(cur, strings.Join(segs[:n], "."))
		if !ok {
			continue
		}
		if v, ok := walk(next, segs[n:]); ok {
			return v, true
		}
	}
	return jsonval.Value{}, false
}

// lookup reads one property. Arrays accept numeric indexes only.
func lookup(cur jsonval.Value, key string) (jsonval.Value, bool) {
	switch cur.Kind() {
	case jsonval.Object:
		return cur.Get(key)
	case jsonval.Array:
		if i, err := strconv.Atoi(key); err == nil {
			return cur.Index(i)
		}
	}
	return jsonval.Value{}, false
}
