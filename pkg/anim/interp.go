package anim

import (
	"github.com/echiweshe/sceneforge/pkg/errors"
)

// Mode names an interpolation curve between keyframes.
type Mode string

const (
	// ModeLinear interpolates linearly. The empty mode resolves to it.
	ModeLinear Mode = "linear"
	// ModeStep holds each keyframe's value until the next keyframe.
	ModeStep Mode = "step"
	// ModeEaseInOut accelerates in and decelerates out (cubic).
	ModeEaseInOut Mode = "ease-in-out"
)

// Interpolator maps normalized segment time u in [0, 1] onto an easing
// weight in [0, 1].
type Interpolator func(u float64) float64

var interpolators = map[Mode]Interpolator{
	ModeLinear: func(u float64) float64 { return u },
	ModeStep:   func(u float64) float64 { return 0 },
	ModeEaseInOut: func(u float64) float64 {
		if u < 0.5 {
			return 4 * u * u * u
		}
		v := -2*u + 2
		return 1 - v*v*v/2
	},
}

// RegisterMode adds or replaces an interpolation mode. Built-in modes
// can be shadowed; registration is not synchronized and belongs in init
// or test setup.
func RegisterMode(mode Mode, fn Interpolator) {
	interpolators[mode] = fn
}

// interpolator resolves a mode, defaulting the empty mode to linear.
func interpolator(mode Mode) (Interpolator, error) {
	if mode == "" {
		mode = ModeLinear
	}
	fn, ok := interpolators[mode]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotSupported, "unsupported interpolation mode %q", mode)
	}
	return fn, nil
}
