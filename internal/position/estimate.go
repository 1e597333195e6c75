package position

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxResidual bounds the RMS range residual, relative to the mean range,
// above which a fit that stopped early is rejected.
const maxResidual = 1e-3

// LeastSquares returns the point minimizing the squared range residuals to
// the three anchors. Unlike Trilaterate it also yields a best-fit point for
// slightly inconsistent ranges. The fit starts above the anchor plane and
// the result is kept on the same side as Trilaterate's.
func LeastSquares(anchors [3]r3.Vec, distances [3]float64) (r3.Vec, error) {
	for k, dist := range distances {
		if dist < 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
			return r3.Vec{}, invalidMeasurement(k, dist)
		}
	}
	b, err := newBasis(anchors[0], anchors[1], anchors[2])
	if err != nil {
		return r3.Vec{}, err
	}

	fn := func(x []float64) float64 {
		p := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		cost := 0.0
		for k, a := range anchors {
			r := r3.Norm(r3.Sub(p, a)) - distances[k]
			cost += r * r
		}
		return cost
	}
	grad := func(g, x []float64) {
		p := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		var sum r3.Vec
		for k, a := range anchors {
			diff := r3.Sub(p, a)
			dist := r3.Norm(diff)
			if dist == 0 {
				continue
			}
			sum = r3.Add(sum, r3.Scale(2*(dist-distances[k])/dist, diff))
		}
		g[0], g[1], g[2] = sum.X, sum.Y, sum.Z
	}

	mean := (distances[0] + distances[1] + distances[2]) / 3
	centroid := r3.Scale(1.0/3, r3.Add(r3.Add(anchors[0], anchors[1]), anchors[2]))
	start := r3.Add(centroid, r3.Scale(math.Max(mean, b.d)/2, b.ez))

	problem := optimize.Problem{Func: fn, Grad: grad}
	result, err := optimize.Minimize(problem, []float64{start.X, start.Y, start.Z}, nil, &optimize.BFGS{})
	if result == nil {
		return r3.Vec{}, fmt.Errorf("least-squares fit: %w", err)
	}

	p := r3.Vec{X: result.X[0], Y: result.X[1], Z: result.X[2]}
	if !finite(p) {
		return r3.Vec{}, fmt.Errorf("%w: least-squares fit diverged", ErrNoSolution)
	}
	if err != nil {
		rms := math.Sqrt(result.F / 3)
		if rms > maxResidual*math.Max(mean, 1) {
			return r3.Vec{}, fmt.Errorf("least-squares fit stopped with residual %v: %w", rms, err)
		}
	}

	if z := r3.Dot(r3.Sub(p, b.origin), b.ez); z < 0 {
		p = r3.Sub(p, r3.Scale(2*z, b.ez))
	}
	return p, nil
}
