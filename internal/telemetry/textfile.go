// Package telemetry exports run results as Prometheus gauges, for scraping
// through a node_exporter textfile collector.
package telemetry

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/cstrsim/internal/experiment"
)

const namespace = "cstrsim"

type Exporter struct {
	reg *prometheus.Registry

	info     *prometheus.GaugeVec
	channel  *prometheus.GaugeVec
	stable   prometheus.Gauge
	abscissa prometheus.Gauge
	poles    prometheus.Gauge
	elapsed  prometheus.Gauge
}

func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Always 1; labels identify the exported run.",
		}, []string{"run_id", "method"}),
		channel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_metric",
			Help:      "Tracking metric of one control channel.",
		}, []string{"cv", "mv", "metric"}),
		stable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "closed_loop_stable",
			Help:      "1 when every closed-loop pole is in the open left half-plane.",
		}),
		abscissa: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "closed_loop_spectral_abscissa",
			Help:      "Largest real part among the closed-loop poles.",
		}),
		poles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "closed_loop_poles",
			Help:      "Number of closed-loop poles.",
		}),
		elapsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time spent building and simulating the run.",
		}),
	}
	e.reg.MustRegister(e.info, e.channel, e.stable, e.abscissa, e.poles, e.elapsed)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe replaces the exported values with those of res.
func (e *Exporter) Observe(runID, method string, res *experiment.Result) {
	e.info.Reset()
	e.info.WithLabelValues(runID, method).Set(1)

	e.channel.Reset()
	for _, ch := range res.Channels {
		names := make([]string, 0, len(ch.Metrics))
		for name := range ch.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			e.channel.WithLabelValues(ch.CV, ch.MV, name).Set(ch.Metrics[name])
		}
	}

	if res.Stable {
		e.stable.Set(1)
	} else {
		e.stable.Set(0)
	}
	abscissa := math.Inf(-1)
	for _, p := range res.Poles {
		abscissa = math.Max(abscissa, real(p))
	}
	if len(res.Poles) == 0 {
		abscissa = math.NaN()
	}
	e.abscissa.Set(abscissa)
	e.poles.Set(float64(len(res.Poles)))
	e.elapsed.Set(res.Elapsed.Seconds())
}

// WriteTextfile writes the current values to path in the text exposition
// format. The file is replaced atomically.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.reg)
}
