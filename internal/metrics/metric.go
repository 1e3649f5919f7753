// Package metrics scores sampled responses against their reference signal.
package metrics

// Metric accumulates a scalar over the samples of one signal y tracking a
// reference ref. Samples must be observed in increasing time order.
type Metric interface {
	Name() string
	Observe(t, y, ref float64)
	Value() float64
	Reset()
}

// Evaluate resets ms, feeds them the samples and returns their values by
// name. ref may be nil for a zero reference.
func Evaluate(times, y, ref []float64, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k, t := range times {
			r := 0.0
			if ref != nil {
				r = ref[k]
			}
			m.Observe(t, y[k], r)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
