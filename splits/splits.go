// Package splits normalises user supplied split fractions into (start, end)
// ranges over a source's frames.
package splits

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedSplit is returned when split values cannot be grouped into pairs.
var ErrMalformedSplit = errors.New("malformed split")

// Range is a fractional sub-range [Start, End) of a source's frame indices.
type Range struct {
	Start float64 `json:"start" yaml:"start" toml:"start"`
	End   float64 `json:"end" yaml:"end" toml:"end"`
}

// Full covers every frame of a source.
var Full = Range{Start: 0, End: 1}

// Validate checks 0 <= Start <= End <= 1.
func (r Range) Validate() error {
	if math.IsNaN(r.Start) || math.IsNaN(r.End) {
		return fmt.Errorf("split %v: fractions must be numbers", r)
	}
	if r.Start < 0 || r.End > 1 {
		return fmt.Errorf("split %v: fractions must lie in [0, 1]", r)
	}
	if r.Start > r.End {
		return fmt.Errorf("split %v: start must not exceed end", r)
	}
	return nil
}

// Bounds returns the frame interval [floor(n*Start), floor(n*End)).
func (r Range) Bounds(n int) (lo, hi int) {
	lo = int(math.Floor(float64(n) * r.Start))
	hi = int(math.Floor(float64(n) * r.End))
	return lo, hi
}

func (r Range) String() string {
	return fmt.Sprintf("(%g, %g)", r.Start, r.End)
}

// Resolve turns groups of split values into ranges. When every group already
// holds exactly two values they are used as pairs; otherwise all values are
// flattened and paired consecutively. Bounds are not checked here.
func Resolve(groups [][]float64) ([]Range, error) {
	allPairs := true
	for _, g := range groups {
		if len(g) != 2 {
			allPairs = false
			break
		}
	}
	if allPairs {
		out := make([]Range, len(groups))
		for i, g := range groups {
			out[i] = Range{Start: g[0], End: g[1]}
		}
		return out, nil
	}

	var flat []float64
	for _, g := range groups {
		flat = append(flat, g...)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: length of split %v should be even", ErrMalformedSplit, flat)
	}
	out := make([]Range, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		out = append(out, Range{Start: flat[i], End: flat[i+1]})
	}
	return out, nil
}

// FromAny converts decoded config values (TOML or YAML) into split groups.
// A scalar becomes a group of one, an array of scalars a single group when it
// is nested inside another array, and a flat array of scalars a list of
// single-value groups.
func FromAny(v any) ([][]float64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case [][]float64:
		return val, nil
	case []float64:
		groups := make([][]float64, len(val))
		for i, f := range val {
			groups[i] = []float64{f}
		}
		return groups, nil
	case []any:
		groups := make([][]float64, 0, len(val))
		for i, item := range val {
			if inner, ok := item.([]any); ok {
				g := make([]float64, 0, len(inner))
				for j, x := range inner {
					f, err := toFloat(x)
					if err != nil {
						return nil, fmt.Errorf("%w: element [%d][%d]: %v", ErrMalformedSplit, i, j, err)
					}
					g = append(g, f)
				}
				groups = append(groups, g)
				continue
			}
			f, err := toFloat(item)
			if err != nil {
				return nil, fmt.Errorf("%w: element [%d]: %v", ErrMalformedSplit, i, err)
			}
			groups = append(groups, []float64{f})
		}
		return groups, nil
	default:
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSplit, err)
		}
		return [][]float64{{f}}, nil
	}
}

// ParseFlag parses one command line split value such as "0,0.5" or "0 0.5".
func ParseFlag(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedSplit)
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedSplit, f)
		}
		out = append(out, v)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
