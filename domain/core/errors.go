package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Input validation errors
	ErrInvalidSeries  = errors.New("invalid series")
	ErrInvalidKnots   = errors.New("invalid knot specification")
	ErrInvalidMask    = errors.New("invalid mask")
	ErrInvalidOptions = errors.New("invalid options")

	// Fitting errors
	ErrInsufficientActivePoints = errors.New("insufficient active points for fit")
	ErrSingularFit              = errors.New("spline system is singular")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewSeriesError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSeries, reason)
}

func NewSeriesErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSeries, fmt.Sprintf(format, args...))
}

func NewKnotError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidKnots, reason)
}

func NewOptionsErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}

func NewInsufficientPointsError(active, required int) error {
	return fmt.Errorf("%w: %d active, %d required", ErrInsufficientActivePoints, active, required)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidSeries) ||
		errors.Is(err, ErrInvalidKnots) ||
		errors.Is(err, ErrInvalidMask) ||
		errors.Is(err, ErrInvalidOptions)
}

func IsFitError(err error) bool {
	return errors.Is(err, ErrInsufficientActivePoints) ||
		errors.Is(err, ErrSingularFit)
}
