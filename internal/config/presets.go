package config

// Presets are canned loop setups for quick experiments.
var Presets = map[string]*Config{
	"step": {
		Dt: 0.1, Duration: 20.0, HistorySize: 100, Setpoint: 1.0,
		Controllers: []ControllerConfig{
			{Name: "pid", Mode: "pid", Kp: 2.0, Ki: 0.5, Kd: 0.1},
		},
	},
	"regulate": {
		Dt: 0.1, Duration: 30.0, HistorySize: 100, Setpoint: 0.0, Disturbance: 0.05,
		Controllers: []ControllerConfig{
			{Name: "pi", Mode: "pi", Kp: 1.5, Ki: 0.8},
		},
	},
	"sluggish": {
		Dt: 0.1, Duration: 60.0, HistorySize: 100, Setpoint: 1.0,
		Controllers: []ControllerConfig{
			{Name: "p", Mode: "p", Kp: 0.2},
		},
	},
	"oscillatory": {
		Dt: 0.1, Duration: 30.0, HistorySize: 100, Setpoint: 1.0,
		Controllers: []ControllerConfig{
			{Name: "hot", Mode: "pi", Kp: 8.0, Ki: 4.0},
		},
	},
	"shootout": {
		Dt: 0.1, Duration: 30.0, HistorySize: 100, Setpoint: 1.0,
		Controllers: []ControllerConfig{
			{Name: "p", Mode: "p", Kp: 2.0},
			{Name: "pi", Mode: "pi", Kp: 2.0, Ki: 0.5},
			{Name: "pd", Mode: "pd", Kp: 2.0, Kd: 0.1},
			{Name: "pid", Mode: "pid", Kp: 2.0, Ki: 0.5, Kd: 0.1},
		},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
