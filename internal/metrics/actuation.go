package metrics

import "math"

// Actuation metrics score a controller command signal. They ignore the
// reference.

// ControlEffort is the time average of |u| over the observed window, using
// the trapezoidal rule so that uneven sample grids are weighted correctly.
// A single sample reports its own magnitude.
type ControlEffort struct {
	area  float64
	t0    float64
	prevT float64
	prevU float64
	seen  int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (*ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(t, u, _ float64) {
	mag := math.Abs(u)
	if c.seen == 0 {
		c.t0 = t
	} else {
		c.area += 0.5 * (mag + c.prevU) * (t - c.prevT)
	}
	c.prevT, c.prevU = t, mag
	c.seen++
}

func (c *ControlEffort) Value() float64 {
	switch {
	case c.seen == 0:
		return 0
	case c.prevT == c.t0:
		return c.prevU
	}
	return c.area / (c.prevT - c.t0)
}

func (c *ControlEffort) Reset() { *c = ControlEffort{} }

// ControlTravel is the total variation of the command, the summed
// |u[k] - u[k-1]|. It grows with actuator wear and chatter.
type ControlTravel struct {
	sum   float64
	prev  float64
	begun bool
}

func NewControlTravel() *ControlTravel { return &ControlTravel{} }

func (*ControlTravel) Name() string { return "control_travel" }

func (c *ControlTravel) Observe(_, u, _ float64) {
	if c.begun {
		c.sum += math.Abs(u - c.prev)
	}
	c.prev, c.begun = u, true
}

func (c *ControlTravel) Value() float64 { return c.sum }

func (c *ControlTravel) Reset() { *c = ControlTravel{} }

// Actuation returns the metrics applied to controller commands.
func Actuation() []Metric {
	return []Metric{NewControlEffort(), NewControlTravel()}
}
