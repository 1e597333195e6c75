package position

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// basisTolerance is the relative size below which an anchor separation or
// the out-of-line component of anchor 3 is treated as zero.
const basisTolerance = 1e-9

// planeTolerance absorbs rounding when the probe lies in the anchor plane.
const planeTolerance = 1e-12

// basis is the orthonormal frame spanned by three anchors, with p1 as the
// origin, ex toward p2 and ey toward p3.
type basis struct {
	origin     r3.Vec
	ex, ey, ez r3.Vec
	d          float64 // |p2 - p1|
	i, j       float64 // coordinates of p3 along ex and ey
}

func newBasis(p1, p2, p3 r3.Vec) (basis, error) {
	for k, p := range [3]r3.Vec{p1, p2, p3} {
		if !finite(p) {
			return basis{}, fmt.Errorf("%w: anchor %d has non-finite coordinates %v", ErrInvalidGeometry, k+1, p)
		}
	}

	v2 := r3.Sub(p2, p1)
	v3 := r3.Sub(p3, p1)
	d := r3.Norm(v2)
	scale := math.Max(d, r3.Norm(v3))
	if d == 0 || d <= basisTolerance*scale {
		return basis{}, fmt.Errorf("%w: anchors 1 and 2 coincide", ErrDegenerateBasis)
	}
	ex := r3.Scale(1/d, v2)

	i := r3.Dot(ex, v3)
	w := r3.Sub(v3, r3.Scale(i, ex))
	j := r3.Norm(w)
	if j <= basisTolerance*scale {
		return basis{}, fmt.Errorf("%w: anchors are colinear", ErrDegenerateBasis)
	}
	ey := r3.Scale(1/j, w)

	return basis{
		origin: p1,
		ex:     ex,
		ey:     ey,
		ez:     r3.Cross(ex, ey),
		d:      d,
		i:      i,
		j:      j,
	}, nil
}

// toGlobal maps local (x, y, z) coordinates back into the anchors' frame.
func (b basis) toGlobal(x, y, z float64) r3.Vec {
	p := r3.Add(b.origin, r3.Scale(x, b.ex))
	p = r3.Add(p, r3.Scale(y, b.ey))
	return r3.Add(p, r3.Scale(z, b.ez))
}

// Trilaterate returns the point at the given distances from the three
// anchors.
//
// Three spheres generally meet in two points mirrored through the anchor
// plane. Trilaterate always returns the one on the non-negative side of
// ex × ey, where ex points from anchor 1 to anchor 2 and ey points from
// anchor 1 toward anchor 3 orthogonally to ex. Use TrilaterateBoth for the
// mirror root.
//
// The returned error wraps ErrInvalidMeasurement, ErrInvalidGeometry,
// ErrDegenerateBasis or ErrNoSolution.
func Trilaterate(anchors [3]r3.Vec, distances [3]float64) (r3.Vec, error) {
	upper, _, err := TrilaterateBoth(anchors, distances)
	return upper, err
}

// TrilaterateBoth returns both mirror solutions. upper lies on the
// non-negative side of the anchor plane, lower is its reflection. They are
// equal when the probe lies in the plane.
func TrilaterateBoth(anchors [3]r3.Vec, distances [3]float64) (upper, lower r3.Vec, err error) {
	for k, dist := range distances {
		if dist < 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
			return r3.Vec{}, r3.Vec{}, invalidMeasurement(k, dist)
		}
	}

	b, err := newBasis(anchors[0], anchors[1], anchors[2])
	if err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}

	d1, d2, d3 := distances[0], distances[1], distances[2]
	x := (d1*d1 - d2*d2 + b.d*b.d) / (2 * b.d)
	y := (d1*d1-d3*d3+b.i*b.i+b.j*b.j)/(2*b.j) - (b.i/b.j)*x

	zSquared := d1*d1 - x*x - y*y
	if zSquared < 0 {
		if zSquared < -planeTolerance*math.Max(1, d1*d1) {
			return r3.Vec{}, r3.Vec{}, fmt.Errorf("%w: ranges %v, %v, %v do not intersect", ErrNoSolution, d1, d2, d3)
		}
		zSquared = 0
	}
	z := math.Sqrt(zSquared)

	upper = b.toGlobal(x, y, z)
	lower = b.toGlobal(x, y, -z)
	if !finite(upper) || !finite(lower) {
		return r3.Vec{}, r3.Vec{}, fmt.Errorf("%w: solution is not finite", ErrDegenerateBasis)
	}
	return upper, lower, nil
}

func finite(p r3.Vec) bool {
	for _, c := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
