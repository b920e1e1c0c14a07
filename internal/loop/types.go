package loop

// Sample records one controller's view of a single simulation tick.
// ProcessVariable is the value after the tick's plant update; Error is
// the signal the controller acted on, computed from the previous tick's
// process variable.
type Sample struct {
	Time            float64 `json:"time"`
	Setpoint        float64 `json:"setpoint"`
	Disturbance     float64 `json:"disturbance"`
	ProcessVariable float64 `json:"pv"`
	Error           float64 `json:"error"`
	Output          float64 `json:"output"`
	Integral        float64 `json:"integral"`
}

// History is a bounded FIFO of samples for one controller. When full,
// appending evicts the oldest sample; insertion order is temporal order.
type History struct {
	capacity int
	samples  []Sample
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		samples:  make([]Sample, 0, capacity),
	}
}

func (h *History) Append(s Sample) {
	if len(h.samples) == h.capacity {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}
	h.samples = append(h.samples, s)
}

func (h *History) Len() int { return len(h.samples) }

func (h *History) Cap() int { return h.capacity }

// Samples returns a copy so callers can analyze or export an immutable
// snapshot while the loop keeps appending.
func (h *History) Samples() []Sample {
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Last returns the most recent sample, if any.
func (h *History) Last() (Sample, bool) {
	if len(h.samples) == 0 {
		return Sample{}, false
	}
	return h.samples[len(h.samples)-1], true
}

func (h *History) Reset() { h.samples = h.samples[:0] }
