package position

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is a local positioning frame built from three anchors. Anchor 1 sits
// at the origin, anchor 2 on the positive x-axis and anchor 3 in the
// xy-plane; the whole frame is then translated by Offset.
//
// A Frame is not safe for concurrent use. SetProbeDistances followed by
// ProbePosition must be serialized by the caller; Service does this.
type Frame struct {
	triangle Triangle
	probe    [3]float64
	offset   r3.Vec
}

// NewFrame stores the anchor triangle without validating it. An invalid
// triangle is reported by Anchor(3) and ProbePosition.
func NewFrame(d12, d13, d23 float64) *Frame {
	return &Frame{triangle: Triangle{D12: d12, D13: d13, D23: d23}}
}

// NewValidatedFrame is NewFrame that rejects triangles with non-positive
// sides or a violated triangle inequality.
func NewValidatedFrame(d12, d13, d23 float64) (*Frame, error) {
	f := NewFrame(d12, d13, d23)
	if err := f.triangle.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Triangle returns the anchor distances the frame was built from.
func (f *Frame) Triangle() Triangle { return f.triangle }

// Offset returns the translation applied to every anchor.
func (f *Frame) Offset() r3.Vec { return f.offset }

// SetOffset repositions the frame inside a larger coordinate system.
func (f *Frame) SetOffset(offset r3.Vec) { f.offset = offset }

// SetProbeDistances overwrites the measured probe-to-anchor distances.
func (f *Frame) SetProbeDistances(d1, d2, d3 float64) {
	f.probe = [3]float64{d1, d2, d3}
}

// ProbeDistances returns the last distances set by SetProbeDistances.
func (f *Frame) ProbeDistances() [3]float64 { return f.probe }

// Anchor returns the position of anchor i (1, 2 or 3), offset included.
func (f *Frame) Anchor(i int) (r3.Vec, error) {
	switch i {
	case 1:
		return f.offset, nil
	case 2:
		return r3.Add(r3.Vec{X: f.triangle.D12}, f.offset), nil
	case 3:
		x, y, err := f.triangle.thirdVertex()
		if err != nil {
			return r3.Vec{}, err
		}
		return r3.Add(r3.Vec{X: x, Y: y}, f.offset), nil
	default:
		return r3.Vec{}, fmt.Errorf("anchor index %d out of range [1, 3]", i)
	}
}

// Anchors returns all three anchor positions.
func (f *Frame) Anchors() ([3]r3.Vec, error) {
	var anchors [3]r3.Vec
	for i := range anchors {
		p, err := f.Anchor(i + 1)
		if err != nil {
			return anchors, err
		}
		anchors[i] = p
	}
	return anchors, nil
}

// ProbePosition solves for the probe from the stored distances. The offset
// reaches the result once, through the anchor positions. The probe is
// placed on the +z side of the frame; see Trilaterate.
func (f *Frame) ProbePosition() (r3.Vec, error) {
	anchors, err := f.Anchors()
	if err != nil {
		return r3.Vec{}, err
	}
	return Trilaterate(anchors, f.probe)
}

// ProbePositions returns both mirror solutions, +z first.
func (f *Frame) ProbePositions() (upper, lower r3.Vec, err error) {
	anchors, err := f.Anchors()
	if err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}
	return TrilaterateBoth(anchors, f.probe)
}

// EstimateProbePosition fits the probe to the stored distances by least
// squares. See LeastSquares.
func (f *Frame) EstimateProbePosition() (r3.Vec, error) {
	anchors, err := f.Anchors()
	if err != nil {
		return r3.Vec{}, err
	}
	return LeastSquares(anchors, f.probe)
}
