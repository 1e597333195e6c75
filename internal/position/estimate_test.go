package position

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestLeastSquares_ConsistentRanges(t *testing.T) {
	anchors := [3]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0}}
	points := []r3.Vec{
		{X: 1, Y: 1, Z: 2},
		{X: 2.5, Y: 0.5, Z: 1},
		{X: -1, Y: 2, Z: 3},
	}
	for _, p := range points {
		got, err := LeastSquares(anchors, ranges(p, anchors))
		if err != nil {
			t.Fatalf("LeastSquares(%v): %v", p, err)
		}
		if !vecNear(got, p, 1e-3) {
			t.Errorf("LeastSquares = %v, want %v", got, p)
		}
	}
}

func TestLeastSquares_AgreesWithClosedForm(t *testing.T) {
	f := NewFrame(1, 1, 1)
	f.SetOffset(r3.Vec{X: 2, Y: 2, Z: 1})
	f.SetProbeDistances(1, 1, 1)

	exact, err := f.ProbePosition()
	if err != nil {
		t.Fatalf("ProbePosition: %v", err)
	}
	fit, err := f.EstimateProbePosition()
	if err != nil {
		t.Fatalf("EstimateProbePosition: %v", err)
	}
	if !vecNear(exact, fit, 1e-3) {
		t.Fatalf("fit %v, closed form %v", fit, exact)
	}
}

func TestLeastSquares_InconsistentRangesStayAbovePlane(t *testing.T) {
	anchors := [3]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}, {X: 0, Y: 4, Z: 0}}
	d := ranges(r3.Vec{X: 1, Y: 1, Z: 2}, anchors)
	d[1] += 0.02

	got, err := LeastSquares(anchors, d)
	if err != nil {
		t.Fatalf("LeastSquares: %v", err)
	}
	if got.Z < 0 {
		t.Fatalf("fit %v is below the anchor plane", got)
	}
	if !vecNear(got, r3.Vec{X: 1, Y: 1, Z: 2}, 0.1) {
		t.Fatalf("fit %v drifted from the true point", got)
	}
}

func TestLeastSquares_Errors(t *testing.T) {
	anchors := [3]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	if _, err := LeastSquares(anchors, [3]float64{1, -1, 1}); !errors.Is(err, ErrInvalidMeasurement) {
		t.Errorf("err = %v, want ErrInvalidMeasurement", err)
	}
	colinear := [3]r3.Vec{{X: 0}, {X: 1}, {X: 2}}
	if _, err := LeastSquares(colinear, [3]float64{1, 1, 1}); !errors.Is(err, ErrDegenerateBasis) {
		t.Errorf("err = %v, want ErrDegenerateBasis", err)
	}
}
