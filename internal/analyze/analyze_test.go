package analyze_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Harro4135/pidlab/internal/analyze"
	"github.com/Harro4135/pidlab/internal/loop"
)

// trajectory builds samples from process-variable values against a
// fixed setpoint, the way the loop records them.
func trajectory(setpoint float64, dt float64, pvs ...float64) []loop.Sample {
	samples := make([]loop.Sample, len(pvs))
	prev := 0.0
	for i, pv := range pvs {
		samples[i] = loop.Sample{
			Time:            float64(i+1) * dt,
			Setpoint:        setpoint,
			ProcessVariable: pv,
			Error:           setpoint - prev,
		}
		prev = pv
	}
	return samples
}

var _ = Describe("SteadyStateError", func() {
	It("returns the final error when inside the tolerance band", func() {
		s := trajectory(1.0, 0.1, 0.5, 0.995, 0.999)
		v, ok := analyze.SteadyStateError(s)
		Expect(ok).To(BeTrue())
		Expect(v).To(BeNumerically("~", 1.0-0.995, 1e-12))
	})

	It("is undefined when the final error is outside the band", func() {
		s := trajectory(1.0, 0.1, 0.2, 0.4)
		_, ok := analyze.SteadyStateError(s)
		Expect(ok).To(BeFalse())
	})

	It("is undefined for an empty history", func() {
		_, ok := analyze.SteadyStateError(nil)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Overshoot", func() {
	It("measures the peak above the setpoint", func() {
		s := trajectory(1.0, 0.1, 0.5, 1.3, 1.1, 1.0)
		Expect(analyze.Overshoot(s, 1.0)).To(BeNumerically("~", 0.3, 1e-12))
	})

	It("is negative for a trajectory that never reaches the setpoint", func() {
		s := trajectory(1.0, 0.1, 0.2, 0.5, 0.8)
		Expect(analyze.Overshoot(s, 1.0)).To(BeNumerically("~", -0.2, 1e-12))
	})

	It("measures against the current setpoint, not the one at the peak", func() {
		s := trajectory(1.0, 0.1, 0.5, 2.0, 1.0)
		s[1].Setpoint = 2.0 // setpoint moved mid-run
		Expect(analyze.Overshoot(s, 1.0)).To(BeNumerically("~", 1.0, 1e-12))
	})
})

var _ = Describe("SettlingTime", func() {
	It("finds the first index from which the trajectory stays in band", func() {
		// band is 0.05 around setpoint 1.0
		s := trajectory(1.0, 0.1, 0.2, 0.8, 0.97, 0.99, 1.0)
		v, ok := analyze.SettlingTime(s, 1.0, 0.1)
		Expect(ok).To(BeTrue())
		Expect(v).To(BeNumerically("~", 2*0.1, 1e-12))
	})

	It("ignores excursions that recover before the end", func() {
		s := trajectory(1.0, 0.1, 0.97, 1.2, 0.98, 0.99)
		v, ok := analyze.SettlingTime(s, 1.0, 0.1)
		Expect(ok).To(BeTrue())
		Expect(v).To(BeNumerically("~", 2*0.1, 1e-12))
	})

	It("is undefined when the trajectory never settles", func() {
		s := trajectory(1.0, 0.1, 0.2, 2.0, 0.1, 1.9)
		_, ok := analyze.SettlingTime(s, 1.0, 0.1)
		Expect(ok).To(BeFalse())
	})

	It("is undefined when only the final sample is out of band", func() {
		s := trajectory(1.0, 0.1, 0.99, 1.0, 1.8)
		_, ok := analyze.SettlingTime(s, 1.0, 0.1)
		Expect(ok).To(BeFalse())
	})

	It("is bounded by the recorded duration for converging trajectories", func() {
		pvs := make([]float64, 80)
		pv := 0.0
		for i := range pvs {
			pv += (1.0 - pv) * 0.2
			pvs[i] = pv
		}
		s := trajectory(1.0, 0.1, pvs...)
		v, ok := analyze.SettlingTime(s, 1.0, 0.1)
		Expect(ok).To(BeTrue())
		Expect(v).To(BeNumerically("<=", 80*0.1))
	})

	It("collapses the band at setpoint zero", func() {
		// relative tolerance is zero at setpoint 0, so nothing settles
		s := trajectory(0, 0.1, 0.001, 0.0001, 0.00001)
		_, ok := analyze.SettlingTime(s, 0, 0.1)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Analyze", func() {
	It("aggregates the three metrics", func() {
		s := trajectory(1.0, 0.1, 0.5, 1.2, 1.005, 0.999)
		r := analyze.Analyze(s, 1.0, 0.1)

		Expect(r.SteadyStateDefined).To(BeTrue())
		Expect(r.Overshoot).To(BeNumerically("~", 0.2, 1e-12))
		Expect(r.Settled).To(BeTrue())
	})

	It("is idempotent over the same samples", func() {
		s := trajectory(1.0, 0.1, 0.5, 1.2, 1.005, 0.999)
		r1 := analyze.Analyze(s, 1.0, 0.1)
		r2 := analyze.Analyze(s, 1.0, 0.1)
		Expect(r1).To(Equal(r2))
	})

	It("handles an empty history", func() {
		r := analyze.Analyze(nil, 1.0, 0.1)
		Expect(r.SteadyStateDefined).To(BeFalse())
		Expect(r.Settled).To(BeFalse())
		Expect(r.Overshoot).To(BeZero())
	})
})
