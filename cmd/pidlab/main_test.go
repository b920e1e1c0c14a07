package main

import (
	"math"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Harro4135/pidlab/internal/config"
)

func newFlaggedCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addLoopFlags(cmd)
	for name, val := range flags {
		if err := cmd.Flags().Set(name, val); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	return cmd
}

func resetFlagGlobals() {
	preset = ""
	configFile = ""
}

func TestResolveConfigFlagsOnly(t *testing.T) {
	defer resetFlagGlobals()

	cmd := newFlaggedCommand(t, map[string]string{
		"kp": "3.5", "mode": "pd", "name": "mine",
	})

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(cfg.Controllers) != 1 {
		t.Fatalf("expected 1 controller, got %d", len(cfg.Controllers))
	}
	cc := cfg.Controllers[0]
	if cc.Name != "mine" || cc.Mode != "pd" || cc.Kp != 3.5 {
		t.Errorf("flags not applied: %+v", cc)
	}
}

func TestResolveConfigGainFlagsOverridePreset(t *testing.T) {
	defer resetFlagGlobals()

	// registering flags resets the bound globals, so the preset is
	// chosen after the command is built
	cmd := newFlaggedCommand(t, map[string]string{"kp": "7", "kd": "0.9"})
	preset = "shootout"

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(cfg.Controllers) != 4 {
		t.Fatalf("expected preset's 4 controllers, got %d", len(cfg.Controllers))
	}
	for _, cc := range cfg.Controllers {
		if cc.Kp != 7 {
			t.Errorf("controller %s: --kp ignored, kp = %g", cc.Name, cc.Kp)
		}
		if cc.Kd != 0.9 {
			t.Errorf("controller %s: --kd ignored, kd = %g", cc.Name, cc.Kd)
		}
	}

	// untouched flags keep the preset's values
	byName := make(map[string]config.ControllerConfig)
	for _, cc := range cfg.Controllers {
		byName[cc.Name] = cc
	}
	if byName["pi"].Ki != 0.5 {
		t.Errorf("preset ki overwritten without --ki: %g", byName["pi"].Ki)
	}
	if byName["pd"].Mode != "pd" {
		t.Errorf("preset mode overwritten without --mode: %s", byName["pd"].Mode)
	}
}

func TestResolveConfigPresetUnchangedByOverrides(t *testing.T) {
	defer resetFlagGlobals()

	cmd := newFlaggedCommand(t, map[string]string{"kp": "99"})
	preset = "step"
	if _, err := resolveConfig(cmd); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := config.GetPreset("step").Controllers[0].Kp; got == 99 {
		t.Error("flag override leaked into the shared preset table")
	}
}

func TestResolveConfigRejectsNameWithPreset(t *testing.T) {
	defer resetFlagGlobals()

	cmd := newFlaggedCommand(t, map[string]string{"name": "mine"})
	preset = "step"
	if _, err := resolveConfig(cmd); err == nil {
		t.Error("expected --name with --preset to be rejected")
	}
}

func TestDriveTickCount(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 0.5 // 0.5/0.1 is 4.999… in floats

	lp, err := buildLoop(cfg)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	samples, _, err := drive(lp, cfg)
	if err != nil {
		t.Fatalf("drive failed: %v", err)
	}

	if got := len(samples["pid"]); got != 5 {
		t.Errorf("expected 5 ticks, got %d", got)
	}
	if math.Abs(lp.Time()-0.5) > 1e-9 {
		t.Errorf("expected final time 0.5, got %g", lp.Time())
	}
}
