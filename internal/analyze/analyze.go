// Package analyze computes step-response metrics from a controller's
// recorded samples. All functions are pure: calling them twice on the
// same slice yields identical results and mutates nothing.
package analyze

import (
	"math"

	"github.com/Harro4135/pidlab/internal/loop"
)

const (
	// steadyStateTolerance: the final error must be inside this band
	// for steady-state error to be considered defined.
	steadyStateTolerance = 0.01

	// settlingBandRatio: the settling band is this fraction of the
	// setpoint magnitude. At setpoint 0 the band collapses to zero,
	// which makes settling practically undefined; that is deliberate
	// and left as a documented limitation rather than papered over
	// with an absolute fallback.
	settlingBandRatio = 0.05
)

// Report aggregates the three step-response metrics. Tri-state values
// carry an explicit defined flag; an undefined metric is never encoded
// as a sentinel number.
type Report struct {
	SteadyStateError   float64
	SteadyStateDefined bool
	Overshoot          float64
	SettlingTime       float64
	Settled            bool
}

// SteadyStateError returns the most recent sample's error, defined only
// when the trajectory has actually come to rest inside the tolerance
// band.
func SteadyStateError(samples []loop.Sample) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	e := samples[len(samples)-1].Error
	if math.Abs(e) >= steadyStateTolerance {
		return 0, false
	}
	return e, true
}

// Overshoot is the peak process variable minus the setpoint as it
// stands now, not as it stood at the peak. A trajectory that never
// crosses the setpoint yields a negative value, which is a meaningful
// number and not an error. Empty input yields 0.
func Overshoot(samples []loop.Sample, setpoint float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	peak := math.Inf(-1)
	for _, s := range samples {
		if s.ProcessVariable > peak {
			peak = s.ProcessVariable
		}
	}
	return peak - setpoint
}

// SettlingTime is the first tick index i > 0 from which every sample
// stays inside |pv - setpoint| < settlingBandRatio*|setpoint|, times
// dt. Returns ok=false when the trajectory never settles within the
// recorded horizon.
func SettlingTime(samples []loop.Sample, setpoint, dt float64) (float64, bool) {
	band := settlingBandRatio * math.Abs(setpoint)

	idx := -1
	for i := len(samples) - 1; i >= 1; i-- {
		if math.Abs(samples[i].ProcessVariable-setpoint) >= band {
			break
		}
		idx = i
	}
	if idx < 0 {
		return 0, false
	}
	return float64(idx) * dt, true
}

// Analyze runs all three metrics over one controller's samples.
func Analyze(samples []loop.Sample, setpoint, dt float64) Report {
	r := Report{Overshoot: Overshoot(samples, setpoint)}
	r.SteadyStateError, r.SteadyStateDefined = SteadyStateError(samples)
	r.SettlingTime, r.Settled = SettlingTime(samples, setpoint, dt)
	return r
}
