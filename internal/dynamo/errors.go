package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for canvas and generator operations.
var (
	// ErrEmptyCanvas indicates a canvas with zero width or height.
	ErrEmptyCanvas = errors.New("dynamo: canvas must have positive width and height")

	// ErrInvalidParams indicates a map coefficient that is NaN or Inf.
	ErrInvalidParams = errors.New("dynamo: invalid parameters (NaN or Inf detected)")

	// ErrInvalidPoint indicates a coordinate that is NaN or Inf.
	ErrInvalidPoint = errors.New("dynamo: invalid point (NaN or Inf detected)")

	// ErrInvalidSamples indicates a calibration pass with no samples.
	ErrInvalidSamples = errors.New("dynamo: calibration needs at least one sample")

	// ErrNotCalibrated indicates a render before any successful calibration.
	ErrNotCalibrated = errors.New("dynamo: render called before calibration")

	// ErrDegenerateBounds indicates calibration found a zero-width range.
	ErrDegenerateBounds = errors.New("dynamo: calibrated range has zero width")

	// ErrUnknownSource indicates an unrecognised parameter source kind.
	ErrUnknownSource = errors.New("dynamo: unknown parameter source")

	// ErrUnknownPreset indicates a preset name that is not registered.
	ErrUnknownPreset = errors.New("dynamo: unknown preset")

	// ErrUnknownParam indicates a coefficient name other than a, b, c or d.
	ErrUnknownParam = errors.New("dynamo: unknown parameter name")
)

// RenderError wraps an error with the iteration and point that triggered it.
type RenderError struct {
	Phase     string
	Iteration int
	Point     Point
	Wrapped   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("%s iteration %d at (%g, %g): %v", e.Phase, e.Iteration, e.Point.X, e.Point.Y, e.Wrapped)
}

func (e *RenderError) Unwrap() error {
	return e.Wrapped
}
