// Package experiment assembles a configured reactor, its control loop and
// a forced-response run, and scores the result.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/loop"
	"github.com/san-kum/cstrsim/internal/lti"
	"github.com/san-kum/cstrsim/internal/metrics"
	"github.com/san-kum/cstrsim/internal/plant"
	"github.com/san-kum/cstrsim/internal/response"
)

// TotalIAE is the metric key summing the IAE of every channel.
const TotalIAE = "total.iae"

var ErrNotSetup = errors.New("experiment: not set up")

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *slog.Logger

	plant  *lti.System
	closed *lti.System
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CommandOutput is the closed-loop output name recording the PID command
// sent to mv.
func CommandOutput(mv string) string {
	return loop.ControllersBlock + "." + loop.CommandPort(mv)
}

// MeasuredOutput is the closed-loop output name of the plant's cv.
func MeasuredOutput(cv string) string {
	return loop.PlantBlock + "." + cv
}

// Setup linearizes the reactor and closes the loop. Besides the controlled
// variables the closed loop exposes the controller commands so that runs
// record actuator effort.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	reactor, err := plant.Linearize(e.cfg.Plant)
	if err != nil {
		return err
	}
	spec := e.cfg.LoopSpec()
	blocks, err := loop.Blocks(reactor, spec)
	if err != nil {
		return err
	}
	conns, inplist, outlist, err := loop.Wiring(spec.CVs, spec.MVs)
	if err != nil {
		return err
	}
	for _, mv := range spec.MVs {
		outlist = append(outlist, lti.Ref{Block: loop.ControllersBlock, Port: loop.CommandPort(mv), Sign: 1})
	}
	closed, err := lti.Interconnect(loop.ClosedLoopName, blocks, conns, inplist, outlist)
	if err != nil {
		return fmt.Errorf("closing loop: %w", err)
	}

	e.plant, e.closed = reactor, closed
	e.logger.Debug("closed loop built",
		"blocks", len(blocks),
		"connections", len(conns),
		"states", closed.StateDim(),
		"inputs", closed.InputDim(),
		"outputs", closed.OutputDim())
	return nil
}

// Plant returns the linearized reactor, or nil before Setup.
func (e *Experiment) Plant() *lti.System { return e.plant }

// System returns the closed loop, or nil before Setup.
func (e *Experiment) System() *lti.System { return e.closed }

// Config returns the experiment configuration.
func (e *Experiment) Config() *config.Config { return e.cfg }

// ChannelReport scores one control channel.
type ChannelReport struct {
	CV      string             `json:"cv"`
	MV      string             `json:"mv"`
	Metrics map[string]float64 `json:"metrics"`
}

type Result struct {
	Response *response.Result
	Channels []ChannelReport
	// Metrics flattens the channel metrics as "<cv>.<metric>" and adds
	// TotalIAE.
	Metrics map[string]float64
	Poles   []complex128
	Stable  bool
	Elapsed time.Duration
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.closed == nil {
		return nil, ErrNotSetup
	}
	start := time.Now()

	method, err := e.registry.GetMethod(e.cfg.Method)
	if err != nil {
		return nil, err
	}
	times := e.cfg.Times()
	u, err := response.Steps(e.closed.Inputs(), times, e.cfg.Steps...)
	if err != nil {
		return nil, err
	}
	opts := []response.Option{response.WithMethod(method)}
	if e.cfg.MaxStep > 0 {
		opts = append(opts, response.WithMaxStep(e.cfg.MaxStep))
	}
	if e.cfg.Tolerance > 0 {
		opts = append(opts, response.WithTolerance(e.cfg.Tolerance))
	}

	e.logger.Debug("simulating", "method", method, "samples", len(times), "horizon", e.cfg.Horizon, "steps", len(e.cfg.Steps))
	resp, err := response.Forced(ctx, e.closed, times, u, opts...)
	if err != nil {
		return nil, fmt.Errorf("simulating %q: %w", e.closed.Name(), err)
	}

	poles, err := lti.Poles(e.closed)
	if err != nil {
		return nil, err
	}
	stable, _ := lti.IsStable(e.closed)

	res := &Result{
		Response: resp,
		Metrics:  map[string]float64{TotalIAE: 0},
		Poles:    poles,
		Stable:   stable,
	}
	for _, ch := range e.cfg.Channels {
		report := e.score(resp, ch)
		for name, v := range report.Metrics {
			res.Metrics[ch.CV+"."+name] = v
		}
		res.Metrics[TotalIAE] += report.Metrics["iae"]
		res.Channels = append(res.Channels, report)
	}
	res.Elapsed = time.Since(start)

	if !stable {
		e.logger.Warn("closed loop is unstable", "poles", len(poles))
	}
	e.logger.Info("run complete",
		"method", method,
		"samples", len(times),
		"total_iae", res.Metrics[TotalIAE],
		"elapsed", res.Elapsed)
	return res, nil
}

func (e *Experiment) score(resp *response.Result, ch config.Channel) ChannelReport {
	ms := e.registry.DefaultMetrics()
	y := resp.Output(MeasuredOutput(ch.CV))
	ref := resp.Input(config.SetpointInput(ch.CV))
	report := ChannelReport{
		CV:      ch.CV,
		MV:      ch.MV,
		Metrics: metrics.Evaluate(resp.Times, y, ref, ms...),
	}
	if cmd := resp.Output(CommandOutput(ch.MV)); cmd != nil {
		for name, v := range metrics.Evaluate(resp.Times, cmd, nil, metrics.Actuation()...) {
			report.Metrics[name] = v
		}
	}
	return report
}
