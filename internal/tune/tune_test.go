package tune

import (
	"errors"
	"math"
	"testing"
)

func TestAutoTune(t *testing.T) {
	c := Characterization{ProcessGain: 1, TimeConstant: 1, DeadTime: 0.1}

	g, err := AutoTune(c)
	if err != nil {
		t.Fatalf("autotune failed: %v", err)
	}

	// check against the formulas, not memorized constants
	ku := 0.6 * c.ProcessGain * (c.TimeConstant / c.DeadTime)
	tu := 2 * c.DeadTime

	if math.Abs(g.Kp-0.6*ku) > 1e-12 {
		t.Errorf("kp = %g, want %g", g.Kp, 0.6*ku)
	}
	if math.Abs(g.Ki-1.2*ku/tu) > 1e-12 {
		t.Errorf("ki = %g, want %g", g.Ki, 1.2*ku/tu)
	}
	if math.Abs(g.Kd-0.075*ku*tu) > 1e-12 {
		t.Errorf("kd = %g, want %g", g.Kd, 0.075*ku*tu)
	}

	// and the worked example from that characterization
	if math.Abs(g.Kp-3.6) > 1e-12 || math.Abs(g.Ki-36) > 1e-9 || math.Abs(g.Kd-0.54) > 1e-12 {
		t.Errorf("unexpected gains: %+v", g)
	}
}

func TestAutoTuneRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		c    Characterization
	}{
		{"zero dead time", Characterization{ProcessGain: 1, TimeConstant: 1, DeadTime: 0}},
		{"negative dead time", Characterization{ProcessGain: 1, TimeConstant: 1, DeadTime: -0.5}},
		{"zero gain", Characterization{ProcessGain: 0, TimeConstant: 1, DeadTime: 0.1}},
		{"negative time constant", Characterization{ProcessGain: 1, TimeConstant: -1, DeadTime: 0.1}},
		{"nan dead time", Characterization{ProcessGain: 1, TimeConstant: 1, DeadTime: math.NaN()}},
		{"nan gain", Characterization{ProcessGain: math.NaN(), TimeConstant: 1, DeadTime: 0.1}},
		{"nan time constant", Characterization{ProcessGain: 1, TimeConstant: math.NaN(), DeadTime: 0.1}},
		{"inf dead time", Characterization{ProcessGain: 1, TimeConstant: 1, DeadTime: math.Inf(1)}},
		{"inf time constant", Characterization{ProcessGain: 1, TimeConstant: math.Inf(1), DeadTime: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := AutoTune(tt.c)
			if !errors.Is(err, ErrBadCharacterization) {
				t.Fatalf("expected ErrBadCharacterization, got %v", err)
			}
			if g.Kp != 0 || g.Ki != 0 || g.Kd != 0 {
				t.Errorf("expected zero gains on error, got %+v", g)
			}
			if math.IsInf(g.Kp, 0) || math.IsNaN(g.Ki) {
				t.Error("error path produced Inf/NaN")
			}
		})
	}
}
