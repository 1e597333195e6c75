package position

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry reports an anchor triangle that cannot be placed:
	// a non-positive side or a violated triangle inequality.
	ErrInvalidGeometry = errors.New("invalid anchor geometry")

	// ErrDegenerateBasis reports anchors that do not span an orthonormal
	// frame (coincident or colinear anchors).
	ErrDegenerateBasis = errors.New("degenerate anchor basis")

	// ErrNoSolution reports ranges with no real intersection point for the
	// given anchor layout.
	ErrNoSolution = errors.New("no trilateration solution")

	// ErrInvalidMeasurement reports a negative or non-finite range.
	ErrInvalidMeasurement = errors.New("invalid range measurement")

	// ErrMissingRange reports an anchor with no stored range.
	ErrMissingRange = errors.New("missing range")

	// ErrStaleRange reports a stored range older than the configured max age.
	ErrStaleRange = errors.New("stale range")
)

// Outcome labels used for solve metrics.
const (
	OutcomeOK                 = "ok"
	OutcomeNoSolution         = "no_solution"
	OutcomeDegenerateBasis    = "degenerate_basis"
	OutcomeInvalidGeometry    = "invalid_geometry"
	OutcomeInvalidMeasurement = "invalid_measurement"
	OutcomeMissingRange       = "missing_range"
	OutcomeStaleRange         = "stale_range"
	OutcomeError              = "error"
)

// Outcome maps a solve error onto a short metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNoSolution):
		return OutcomeNoSolution
	case errors.Is(err, ErrDegenerateBasis):
		return OutcomeDegenerateBasis
	case errors.Is(err, ErrInvalidGeometry):
		return OutcomeInvalidGeometry
	case errors.Is(err, ErrInvalidMeasurement):
		return OutcomeInvalidMeasurement
	case errors.Is(err, ErrMissingRange):
		return OutcomeMissingRange
	case errors.Is(err, ErrStaleRange):
		return OutcomeStaleRange
	default:
		return OutcomeError
	}
}

func invalidMeasurement(i int, d float64) error {
	return fmt.Errorf("%w: distance to anchor %d is %v", ErrInvalidMeasurement, i+1, d)
}
