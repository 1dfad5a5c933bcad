package splits

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveFlatList(t *testing.T) {
	groups, err := FromAny([]any{0.0, 0.5, 0.5, 1.0})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	got, err := Resolve(groups)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Range{{0, 0.5}, {0.5, 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolvePairsUnchanged(t *testing.T) {
	got, err := Resolve([][]float64{{0, 0.5}, {0.5, 1.0}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Range{{0, 0.5}, {0.5, 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolveOddLengthFails(t *testing.T) {
	_, err := Resolve([][]float64{{0}, {0.5}, {0.5}})
	if !errors.Is(err, ErrMalformedSplit) {
		t.Fatalf("expected ErrMalformedSplit, got %v", err)
	}
}

func TestResolveMixedShapesFlattens(t *testing.T) {
	// {0, 0.2, 0.3} and {0.9} flatten to four values.
	got, err := Resolve([][]float64{{0, 0.2, 0.3}, {0.9}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Range{{0, 0.2}, {0.3, 0.9}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFromAnyNestedTOMLValues(t *testing.T) {
	groups, err := FromAny([]any{[]any{int64(0), 0.8}, []any{0.9, int64(1)}})
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	want := [][]float64{{0, 0.8}, {0.9, 1}}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("got %v want %v", groups, want)
	}
	if _, err := FromAny([]any{"a"}); !errors.Is(err, ErrMalformedSplit) {
		t.Fatalf("expected ErrMalformedSplit for strings, got %v", err)
	}
}

func TestParseFlag(t *testing.T) {
	got, err := ParseFlag("0, 0.5")
	if err != nil {
		t.Fatalf("ParseFlag: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{0, 0.5}) {
		t.Fatalf("unexpected values %v", got)
	}
	if _, err := ParseFlag("0,x"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestRangeValidateAndBounds(t *testing.T) {
	for _, r := range []Range{{-0.1, 0.5}, {0.2, 1.1}, {0.6, 0.5}} {
		if err := r.Validate(); err == nil {
			t.Fatalf("expected %v to be invalid", r)
		}
	}
	r := Range{0.25, 0.75}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	lo, hi := r.Bounds(10)
	if lo != 2 || hi != 7 {
		t.Fatalf("Bounds(10) = %d,%d want 2,7", lo, hi)
	}
	lo, hi = Full.Bounds(10)
	if lo != 0 || hi != 10 {
		t.Fatalf("Full.Bounds(10) = %d,%d", lo, hi)
	}
}
