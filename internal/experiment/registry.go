package experiment

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/metrics"
	"github.com/san-kum/cstrsim/internal/response"
)

type Registry struct {
	methods map[string]response.Method
	metrics map[string]func() metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		methods: make(map[string]response.Method),
		metrics: make(map[string]func() metrics.Metric),
	}

	for _, m := range response.Methods() {
		r.methods[string(m)] = m
	}
	r.methods[""] = response.Exact

	r.metrics["iae"] = func() metrics.Metric { return metrics.NewIAE() }
	r.metrics["max_deviation"] = func() metrics.Metric { return metrics.NewMaxDeviation() }
	r.metrics["final_value"] = func() metrics.Metric { return metrics.NewFinalValue() }
	r.metrics["settling_time"] = func() metrics.Metric { return metrics.NewSettlingTime(0.02, 1e-3) }
	r.metrics["overshoot"] = func() metrics.Metric { return metrics.NewOvershoot() }

	return r
}

func (r *Registry) GetMethod(name string) (response.Method, error) {
	m, ok := r.methods[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown method: %s", name)
	}
	return m, nil
}

func (r *Registry) GetMetric(name string) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMethods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh instances of every registered tracking
// metric.
func (r *Registry) DefaultMetrics() []metrics.Metric {
	out := make([]metrics.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}

// CheckMetricKey reports whether key names a metric a run of cfg produces:
// TotalIAE or "<cv>.<metric>" for a configured channel, where metric is a
// registered tracking metric or a command metric.
func (r *Registry) CheckMetricKey(cfg *config.Config, key string) error {
	if key == TotalIAE {
		return nil
	}
	cv, name, ok := strings.Cut(key, ".")
	if !ok {
		return fmt.Errorf("metric %q: want <cv>.<metric> or %s", key, TotalIAE)
	}
	if _, ok := cfg.Channel(cv); !ok {
		return fmt.Errorf("metric %q: no channel controls %q", key, cv)
	}
	if _, err := r.GetMetric(name); err == nil {
		return nil
	}
	if slices.ContainsFunc(metrics.Actuation(), func(m metrics.Metric) bool { return m.Name() == name }) {
		return nil
	}
	return fmt.Errorf("metric %q: unknown metric: %s", key, name)
}
