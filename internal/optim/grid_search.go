// Package optim searches loop parameters for the lowest run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"runtime"
	"strconv"
	"strings"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/response"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCandidate = errors.New("optim: no candidate could be evaluated")
	ErrBadRange    = errors.New("optim: invalid parameter range")
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     *slog.Logger

	evaluated int
	failed    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: 1, logger: slog.Default()}
}

func (g *GridSearch) WithLogger(l *slog.Logger) *GridSearch {
	g.logger = l
	return g
}

// WithWorkers sets how many candidates run concurrently; n < 1 means one
// per CPU.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	g.workers = n
	return g
}

// Evaluated reports how many candidates the last search ran, and how many
// of those failed or were unstable.
func (g *GridSearch) Evaluated() (total, failed int) {
	return g.evaluated, g.failed
}

// Search runs every combination of the parameter ranges and returns the
// parameters minimizing metricName. Candidates that fail to build, fail to
// simulate or close an unstable loop are skipped. Ties go to the candidate
// that comes first in grid order, whatever the number of workers.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%w: %d names for %d ranges", ErrBadRange, len(g.paramNames), len(g.ranges))
	}
	g.evaluated, g.failed = 0, 0
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	candidates := g.enumerate(0, map[string]float64{}, nil)
	values := make([]float64, len(candidates))
	errs := make([]error, len(candidates))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range candidates {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			values[i], errs[i] = g.evaluate(egCtx, params, buildExperiment, metricName)
			if errs[i] != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for i, params := range candidates {
		g.evaluated++
		if errs[i] != nil {
			g.failed++
			g.logger.Debug("candidate skipped", "params", params, "err", errs[i])
			continue
		}
		g.logger.Debug("candidate", "params", params, metricName, values[i])
		if values[i] < best {
			best, bestParams = values[i], params
		}
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("%w: %d tried, %d failed", ErrNoCandidate, g.evaluated, g.failed)
	}
	g.logger.Info("grid search complete", "candidates", g.evaluated, "failed", g.failed, "metric", metricName, "best", best)
	return bestParams, best, nil
}

// enumerate appends every combination of the ranges from depth on to out,
// varying the last parameter fastest.
func (g *GridSearch) enumerate(depth int, current map[string]float64, out []map[string]float64) []map[string]float64 {
	if depth == len(g.paramNames) {
		return append(out, maps.Clone(current))
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		out = g.enumerate(depth+1, current, out)
	}
	delete(current, name)
	return out
}

func (g *GridSearch) evaluate(
	ctx context.Context,
	params map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (float64, error) {
	exp, err := buildExperiment(params)
	if err != nil {
		return 0, err
	}
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if !result.Stable {
		return 0, errors.New("unstable closed loop")
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("run has no metric %q", metricName)
	}
	if math.IsNaN(val) {
		return 0, fmt.Errorf("metric %q is NaN", metricName)
	}
	return val, nil
}

// FromConfig returns an experiment builder that applies candidate
// parameters to a copy of base.
func FromConfig(base *config.Config, opts ...experiment.Option) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(cfg, opts...), nil
	}
}

// ParseRange parses "name=lo:hi:n" (n evenly spaced values) or
// "name=v1,v2,...".
func ParseRange(s string) (string, []float64, error) {
	name, spec, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || spec == "" {
		return "", nil, fmt.Errorf("%w: %q, want name=lo:hi:n or name=v1,v2", ErrBadRange, s)
	}

	if parts := strings.Split(spec, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		n, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err := errors.Join(err1, err2, err3); err != nil {
			return "", nil, fmt.Errorf("%w: %q: %v", ErrBadRange, s, err)
		}
		if n < 1 {
			return "", nil, fmt.Errorf("%w: %q: need at least one value", ErrBadRange, s)
		}
		return name, response.Linspace(lo, hi, n), nil
	}

	var values []float64
	for _, f := range strings.Split(spec, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %q: %v", ErrBadRange, s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}
