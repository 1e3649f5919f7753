package metrics

import "math"

// IAE is the integral of the absolute tracking error, by the trapezoidal
// rule.
type IAE struct {
	name     string
	sum      float64
	lastT    float64
	lastErr  float64
	observed bool
}

func NewIAE() *IAE {
	return &IAE{name: "iae"}
}

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(t, y, ref float64) {
	e := math.Abs(y - ref)
	if m.observed {
		m.sum += 0.5 * (e + m.lastErr) * (t - m.lastT)
	}
	m.lastT, m.lastErr, m.observed = t, e, true
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum, m.lastT, m.lastErr, m.observed = 0, 0, 0, false
}

// MaxDeviation is the largest absolute tracking error.
type MaxDeviation struct {
	name string
	max  float64
}

func NewMaxDeviation() *MaxDeviation {
	return &MaxDeviation{name: "max_deviation"}
}

func (m *MaxDeviation) Name() string { return m.name }

func (m *MaxDeviation) Observe(t, y, ref float64) {
	m.max = math.Max(m.max, math.Abs(y-ref))
}

func (m *MaxDeviation) Value() float64 { return m.max }

func (m *MaxDeviation) Reset() { m.max = 0 }

// FinalValue is the last observed sample.
type FinalValue struct {
	name string
	last float64
}

func NewFinalValue() *FinalValue {
	return &FinalValue{name: "final_value"}
}

func (m *FinalValue) Name() string { return m.name }

func (m *FinalValue) Observe(t, y, ref float64) { m.last = y }

func (m *FinalValue) Value() float64 { return m.last }

func (m *FinalValue) Reset() { m.last = 0 }

// SettlingTime is the time of the last sample outside the tolerance band
// around the reference, or zero when the signal never leaves it. The band
// half-width is frac times the largest reference magnitude seen, but never
// less than floor.
type SettlingTime struct {
	name    string
	frac    float64
	floor   float64
	peakRef float64
	errs    []float64
	times   []float64
	last    float64
}

func NewSettlingTime(frac, floor float64) *SettlingTime {
	return &SettlingTime{name: "settling_time", frac: frac, floor: floor}
}

func (m *SettlingTime) Name() string { return m.name }

func (m *SettlingTime) Observe(t, y, ref float64) {
	m.peakRef = math.Max(m.peakRef, math.Abs(ref))
	m.errs = append(m.errs, math.Abs(y-ref))
	m.times = append(m.times, t)
}

func (m *SettlingTime) Value() float64 {
	band := math.Max(m.frac*m.peakRef, m.floor)
	for k := len(m.errs) - 1; k >= 0; k-- {
		if m.errs[k] > band {
			return m.times[k]
		}
	}
	return 0
}

func (m *SettlingTime) Reset() {
	m.peakRef = 0
	m.errs = m.errs[:0]
	m.times = m.times[:0]
}

// Overshoot is the largest excursion beyond the reference, in the
// direction of the reference change, as a percentage of that change. It is
// zero while the reference has not moved from its initial value.
type Overshoot struct {
	name     string
	ref0     float64
	refLast  float64
	observed bool
	ys, refs []float64
}

func NewOvershoot() *Overshoot {
	return &Overshoot{name: "overshoot"}
}

func (m *Overshoot) Name() string { return m.name }

func (m *Overshoot) Observe(t, y, ref float64) {
	if !m.observed {
		m.ref0, m.observed = ref, true
	}
	m.refLast = ref
	m.ys = append(m.ys, y)
	m.refs = append(m.refs, ref)
}

func (m *Overshoot) Value() float64 {
	change := m.refLast - m.ref0
	if change == 0 {
		return 0
	}
	dir := math.Copysign(1, change)
	peak := 0.0
	for k, y := range m.ys {
		if m.refs[k] == m.refLast {
			peak = math.Max(peak, dir*(y-m.refLast))
		}
	}
	return 100 * peak / math.Abs(change)
}

func (m *Overshoot) Reset() {
	m.ref0, m.refLast, m.observed = 0, 0, false
	m.ys, m.refs = m.ys[:0], m.refs[:0]
}
