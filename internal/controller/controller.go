package controller

import (
	"errors"
	"fmt"
)

// ErrInvalidStep indicates a non-positive dt passed to Update. The
// derivative term divides by dt, so the step is rejected in every mode
// rather than only when a D term is active.
var ErrInvalidStep = errors.New("controller: dt must be positive")

// Mode selects which terms of the control law contribute to the output.
type Mode int

const (
	ModeP Mode = iota
	ModePI
	ModePD
	ModePID
)

func (m Mode) String() string {
	switch m {
	case ModeP:
		return "p"
	case ModePI:
		return "pi"
	case ModePD:
		return "pd"
	case ModePID:
		return "pid"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a config/CLI string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "p":
		return ModeP, nil
	case "pi":
		return ModePI, nil
	case "pd":
		return ModePD, nil
	case "pid":
		return ModePID, nil
	default:
		return 0, fmt.Errorf("controller: unknown mode %q", s)
	}
}

// Gains is a kp/ki/kd triple.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// Controller is a single feedback controller. Gains and mode may be any
// real values and may change between steps; integral and prevErr survive
// such changes so retuning mid-run does not discard accumulated state.
// A Controller is independent of every other Controller.
type Controller struct {
	Name string
	Kp   float64
	Ki   float64
	Kd   float64
	Mode Mode

	integral float64
	prevErr  float64
}

func New(name string, kp, ki, kd float64, mode Mode) *Controller {
	return &Controller{
		Name: name,
		Kp:   kp,
		Ki:   ki,
		Kd:   kd,
		Mode: mode,
	}
}

// Update advances the controller by one step and returns the control
// output for the given error signal. integral and prevErr are updated
// unconditionally, even in modes that do not use them. Gains for terms
// excluded by the mode are ignored, not required to be zero. On error
// no state is modified.
func (c *Controller) Update(err, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("%w, got %g", ErrInvalidStep, dt)
	}

	prev := c.prevErr
	c.integral += err * dt
	c.prevErr = err

	out := c.Kp * err
	switch c.Mode {
	case ModePI:
		out += c.Ki * c.integral
	case ModePD:
		out += c.Kd * (err - prev) / dt
	case ModePID:
		out += c.Ki*c.integral + c.Kd*(err-prev)/dt
	}
	return out, nil
}

// SetGains replaces kp/ki/kd, leaving mode and run state untouched.
func (c *Controller) SetGains(g Gains) {
	c.Kp = g.Kp
	c.Ki = g.Ki
	c.Kd = g.Kd
}

// SetMode switches the control law. Run state is mode-independent and
// is preserved.
func (c *Controller) SetMode(m Mode) { c.Mode = m }

// Reset clears integral and previous-error state for a new session.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevErr = 0
}

// Integral returns the accumulated error*dt.
func (c *Controller) Integral() float64 { return c.integral }

// LastError returns the error seen by the most recent Update.
func (c *Controller) LastError() float64 { return c.prevErr }
