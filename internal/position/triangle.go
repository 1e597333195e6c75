package position

import (
	"fmt"
	"math"
)

// Triangle holds the pairwise distances between the three anchors.
type Triangle struct {
	D12, D13, D23 float64
}

// Perimeter returns the sum of the three sides.
func (t Triangle) Perimeter() float64 {
	return t.D12 + t.D13 + t.D23
}

// Area returns the triangle area from Heron's formula. A negative radicand
// means the sides cannot close into a triangle.
func (t Triangle) Area() (float64, error) {
	unit, scale, err := t.unitArea()
	if err != nil {
		return 0, err
	}
	area := unit * scale * scale
	if math.IsInf(area, 0) {
		return 0, fmt.Errorf("%w: area of sides %v, %v, %v overflows",
			ErrInvalidGeometry, t.D12, t.D13, t.D23)
	}
	return area, nil
}

// Validate checks that every side is positive and finite and that each side
// is strictly shorter than the sum of the other two.
func (t Triangle) Validate() error {
	if err := t.checkSides(); err != nil {
		return err
	}
	u := t.scaled(t.longest())
	if u.D12 >= u.D13+u.D23 || u.D13 >= u.D12+u.D23 || u.D23 >= u.D12+u.D13 {
		return fmt.Errorf("%w: sides %v, %v, %v violate the triangle inequality",
			ErrInvalidGeometry, t.D12, t.D13, t.D23)
	}
	return nil
}

func (t Triangle) checkSides() error {
	sides := []struct {
		name  string
		value float64
	}{{"d12", t.D12}, {"d13", t.D13}, {"d23", t.D23}}
	for _, side := range sides {
		if !(side.value > 0) || math.IsInf(side.value, 0) {
			return fmt.Errorf("%w: %s must be a positive length, got %v", ErrInvalidGeometry, side.name, side.value)
		}
	}
	return nil
}

func (t Triangle) longest() float64 {
	return math.Max(t.D12, math.Max(t.D13, t.D23))
}

func (t Triangle) scaled(scale float64) Triangle {
	return Triangle{D12: t.D12 / scale, D13: t.D13 / scale, D23: t.D23 / scale}
}

// unitArea returns the Heron area of the triangle scaled so its longest
// side lies in [0.5, 1), along with that scale. The scale is a power of two
// so scaling is exact, and the radicand can neither overflow nor underflow.
func (t Triangle) unitArea() (area, scale float64, err error) {
	if err := t.checkSides(); err != nil {
		return 0, 0, err
	}
	_, exp := math.Frexp(t.longest())
	scale = math.Ldexp(1, exp)
	u := t.scaled(scale)
	s := u.Perimeter() / 2
	radicand := s * (s - u.D12) * (s - u.D13) * (s - u.D23)
	if radicand < 0 || math.IsNaN(radicand) {
		return 0, 0, fmt.Errorf("%w: sides %v, %v, %v violate the triangle inequality",
			ErrInvalidGeometry, t.D12, t.D13, t.D23)
	}
	return math.Sqrt(radicand), scale, nil
}

// thirdVertex places anchor 3 in the local frame: anchor 1 at the origin,
// anchor 2 on +x, anchor 3 in the xy-plane with y >= 0.
func (t Triangle) thirdVertex() (x, y float64, err error) {
	area, scale, err := t.unitArea()
	if err != nil {
		return 0, 0, err
	}
	u := t.scaled(scale)
	y = 2 * area / u.D12

	xSquared := u.D13*u.D13 - y*y
	if xSquared < 0 {
		// rounding on a right angle at anchor 1
		if xSquared < -sideTolerance*u.D13*u.D13 {
			return 0, 0, fmt.Errorf("%w: d13 %v is shorter than the triangle height %v",
				ErrInvalidGeometry, t.D13, y*scale)
		}
		xSquared = 0
	}
	x = math.Sqrt(xSquared)
	// An obtuse angle at anchor 1 puts anchor 3 behind the origin.
	if u.D12*u.D12+u.D13*u.D13-u.D23*u.D23 < 0 {
		x = -x
	}

	x, y = x*scale, y*scale
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("%w: anchor 3 of sides %v, %v, %v is out of range",
			ErrInvalidGeometry, t.D12, t.D13, t.D23)
	}
	return x, y, nil
}

const sideTolerance = 1e-12
