// Package loop advances one or more independent feedback controllers
// against an integrator plant in fixed timesteps, recording one sample
// per controller per tick in bounded sliding-window histories.
//
// The loop is purely synchronous: the caller owns scheduling and drives
// Tick directly, whether that caller is a test, an offline run command
// or a frame-driven TUI. No two ticks ever run concurrently, so no
// locking is needed anywhere in the engine.
package loop

import (
	"fmt"
	"math"

	"github.com/Harro4135/pidlab/internal/controller"
)

const (
	// DefaultDt is the fixed per-tick timestep.
	DefaultDt = 0.1

	// DefaultHistorySize is the sliding-window capacity per controller.
	DefaultHistorySize = 100
)

type Config struct {
	Dt          float64
	HistorySize int
}

func DefaultConfig() Config {
	return Config{Dt: DefaultDt, HistorySize: DefaultHistorySize}
}

// Loop owns the plant state and history buffer for every attached
// controller. Each controller drives its own trajectory; within one
// tick all controllers read the same setpoint and disturbance and never
// observe each other's outputs.
//
// The plant is a single integrator: pv' = pv + output*dt + disturbance.
// Disturbance enters only at the plant update, so the controllers see a
// clean error signal of setpoint minus process variable.
type Loop struct {
	dt          float64
	historySize int

	time   float64
	paused bool

	order       []string
	controllers map[string]*controller.Controller
	pv          map[string]float64
	histories   map[string]*History
}

func New(cfg Config) (*Loop, error) {
	// reject NaN/Inf here too, or every later tick would propagate it
	if !isFinite(cfg.Dt) || cfg.Dt <= 0 {
		return nil, fmt.Errorf("%w: dt %g", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.HistorySize <= 0 {
		return nil, fmt.Errorf("%w: history size %d", ErrInvalidConfig, cfg.HistorySize)
	}
	return &Loop{
		dt:          cfg.Dt,
		historySize: cfg.HistorySize,
		controllers: make(map[string]*controller.Controller),
		pv:          make(map[string]float64),
		histories:   make(map[string]*History),
	}, nil
}

// Add attaches a controller mid-session or before the first tick. Its
// trajectory starts at pv=0 from the current tick, with no backfill.
func (l *Loop) Add(c *controller.Controller) error {
	if _, ok := l.controllers[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateController, c.Name)
	}
	l.order = append(l.order, c.Name)
	l.controllers[c.Name] = c
	l.pv[c.Name] = 0
	l.histories[c.Name] = NewHistory(l.historySize)
	return nil
}

func (l *Loop) Remove(name string) error {
	if _, ok := l.controllers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownController, name)
	}
	delete(l.controllers, name)
	delete(l.pv, name)
	delete(l.histories, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Pause stops the loop accepting ticks. In-flight ticks are not a
// concern: the loop is synchronous, so pausing between ticks is the
// only possibility.
func (l *Loop) Pause()  { l.paused = true }
func (l *Loop) Resume() { l.paused = false }

func (l *Loop) Running() bool { return !l.paused }

func (l *Loop) Time() float64 { return l.time }
func (l *Loop) Dt() float64   { return l.dt }

func (l *Loop) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Loop) Controller(name string) (*controller.Controller, bool) {
	c, ok := l.controllers[name]
	return c, ok
}

func (l *Loop) History(name string) (*History, bool) {
	h, ok := l.histories[name]
	return h, ok
}

// Tick advances every attached controller by one fixed step and returns
// the new sample per controller name. Setpoint and disturbance are read
// once here and shared by all controllers for the whole tick.
func (l *Loop) Tick(setpoint, disturbance float64) (map[string]Sample, error) {
	if l.paused {
		return nil, ErrPaused
	}
	if !isFinite(setpoint) || !isFinite(disturbance) {
		return nil, fmt.Errorf("%w: setpoint=%g disturbance=%g", ErrNotFinite, setpoint, disturbance)
	}

	t := l.time + l.dt
	out := make(map[string]Sample, len(l.order))

	for _, name := range l.order {
		c := l.controllers[name]
		pv := l.pv[name]

		errSig := setpoint - pv
		u, err := c.Update(errSig, l.dt)
		if err != nil {
			return nil, err
		}

		next := pv + u*l.dt + disturbance
		s := Sample{
			Time:            t,
			Setpoint:        setpoint,
			Disturbance:     disturbance,
			ProcessVariable: next,
			Error:           errSig,
			Output:          u,
			Integral:        c.Integral(),
		}

		l.pv[name] = next
		l.histories[name].Append(s)
		out[name] = s
	}

	l.time = t
	return out, nil
}

// Reset starts a fresh session: time back to zero, plant state and
// histories cleared, controller run state cleared. Controllers, gains
// and modes are kept.
func (l *Loop) Reset() {
	l.time = 0
	for _, name := range l.order {
		l.pv[name] = 0
		l.histories[name].Reset()
		l.controllers[name].Reset()
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
