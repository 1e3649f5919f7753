package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/storage"
	"github.com/san-kum/cstrsim/internal/telemetry"
	"github.com/san-kum/cstrsim/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "simulate the closed loop and store the run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			_, err = runScenario(cmd.Context(), cmd, cfg)
			return err
		},
	}
	addScenarioFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or config name)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "draw the channel responses in the terminal")
	addChartFlags(cmd)
	cmd.Flags().StringVar(&pngFile, "png", "", "also write the channel responses to this PNG file")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", envOr("CSTRSIM_METRICS_FILE", ""), "write run metrics in Prometheus text format to this file")
}

// loadScenario resolves the configuration from --preset or --config and
// applies the command-line overrides.
func loadScenario(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "" && configFile != "":
		return nil, fmt.Errorf("--preset and --config are mutually exclusive")
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (have %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	case configFile != "":
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		cfg.Method = method
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
	}
	if flags.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	for _, o := range overrides {
		name, raw, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want <cv>.<param>=<value>", o)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", o, err)
		}
		if err := cfg.SetParam(strings.TrimSpace(name), v); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scenarioName() string {
	switch {
	case runName != "":
		return runName
	case preset != "":
		return preset
	case configFile != "":
		base := configFile[strings.LastIndexAny(configFile, `/\`)+1:]
		if i := strings.LastIndex(base, "."); i > 0 {
			base = base[:i]
		}
		return base
	}
	return "run"
}

// runScenario simulates cfg, prints the report and stores the run unless
// --no-save is given. It returns the run ID, empty when not stored.
func runScenario(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger(cmd)
	exp := experiment.New(cfg, experiment.WithLogger(log))
	if err := exp.Setup(); err != nil {
		return "", err
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return "", err
	}

	out := cmd.OutOrStdout()
	st := styles(cmd)
	printReport(out, st, cfg, res)

	var runID string
	if !noSave {
		store := storage.New(dataDir)
		if err := store.Init(); err != nil {
			return "", err
		}
		if runID, err = store.Save(scenarioName(), cfg, res); err != nil {
			return "", err
		}
		fmt.Fprintf(out, "%s %s\n", st.Label.Render("saved"), st.Value.Render(runID))
	}

	panels := viz.ChannelPanels(res.Response.Times, func(name string) []float64 {
		if v := res.Response.Output(name); v != nil {
			return v
		}
		return res.Response.Input(name)
	}, cfg.LoopSpec().CVs, cfg.LoopSpec().MVs)

	if showPlot {
		for _, p := range panels {
			fmt.Fprintln(out, viz.Chart(p, plotWidth, plotHeight, st))
			fmt.Fprintln(out)
		}
	}
	if pngFile != "" {
		if err := writePNGFile(pngFile, panels); err != nil {
			return runID, err
		}
		log.Info("wrote plot", "path", pngFile)
	}
	if metricsFile != "" {
		exporter := telemetry.NewExporter()
		exporter.Observe(runID, cfg.Method, res)
		if err := exporter.WriteTextfile(metricsFile); err != nil {
			return runID, err
		}
		log.Info("wrote metrics", "path", metricsFile)
	}
	return runID, nil
}

func printReport(w io.Writer, st viz.Styles, cfg *config.Config, res *experiment.Result) {
	fmt.Fprintln(w, st.Header.Render("CLOSED LOOP"))
	fmt.Fprintf(w, "%s %s   %s %d   %s %.4gs\n",
		st.Label.Render("method"), st.Value.Render(cfg.Method),
		st.Label.Render("samples"), len(res.Response.Times),
		st.Label.Render("horizon"), cfg.Horizon)
	fmt.Fprintf(w, "%s %d %s\n", st.Label.Render("poles"), len(res.Poles), st.Stability(res.Stable))
	fmt.Fprintln(w, viz.MetricsTable(res.Channels, st))
	fmt.Fprintf(w, "%s %s\n", st.Label.Render("total iae"), st.Value.Render(fmt.Sprintf("%.6g", res.Metrics[experiment.TotalIAE])))
}

func writePNGFile(path string, panels []viz.Panel) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := viz.WritePNG(f, panels, 8*vg.Inch, viz.PanelHeight); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
