// Package tune derives PID gains from a first-order process
// characterization using a Ziegler-Nichols style closed-form heuristic.
package tune

import (
	"errors"
	"fmt"
	"math"

	"github.com/Harro4135/pidlab/internal/controller"
)

// ErrBadCharacterization indicates a non-positive or non-finite
// process parameter.
// Dead time in particular is a divisor and must be strictly positive;
// the input is rejected before any arithmetic so the caller never sees
// Inf/NaN gains.
var ErrBadCharacterization = errors.New("tune: characterization values must be positive")

// Characterization describes the process as seen by a step test.
type Characterization struct {
	ProcessGain  float64
	TimeConstant float64
	DeadTime     float64
}

// AutoTune computes a gain triple from the characterization:
//
//	ku = 0.6 * gain * (tau / deadTime)
//	tu = 2 * deadTime
//	kp = 0.6 * ku
//	ki = 1.2 * ku / tu
//	kd = 0.075 * ku * tu
//
// The caller applies the result to a controller; mode is not touched.
func AutoTune(c Characterization) (controller.Gains, error) {
	// NaN compares false against everything, so a plain <= 0 guard
	// would wave it through and the formulas below would hand back
	// NaN gains with a nil error
	if !positive(c.DeadTime) {
		return controller.Gains{}, fmt.Errorf("%w: dead time %g", ErrBadCharacterization, c.DeadTime)
	}
	if !positive(c.ProcessGain) {
		return controller.Gains{}, fmt.Errorf("%w: process gain %g", ErrBadCharacterization, c.ProcessGain)
	}
	if !positive(c.TimeConstant) {
		return controller.Gains{}, fmt.Errorf("%w: time constant %g", ErrBadCharacterization, c.TimeConstant)
	}

	ku := 0.6 * c.ProcessGain * (c.TimeConstant / c.DeadTime)
	tu := 2 * c.DeadTime

	return controller.Gains{
		Kp: 0.6 * ku,
		Ki: 1.2 * ku / tu,
		Kd: 0.075 * ku * tu,
	}, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
