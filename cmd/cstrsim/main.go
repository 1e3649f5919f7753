package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/san-kum/cstrsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir  string
	logLevel string
	theme    string
	noColor  bool

	configFile  string
	preset      string
	method      string
	horizon     float64
	samples     int
	maxStep     float64
	tolerance   float64
	overrides   []string
	runName     string
	noSave      bool
	showPlot    bool
	pngFile     string
	metricsFile string

	plotWidth  int
	plotHeight int
	outFile    string

	ranges      []string
	tuneMetric  string
	tuneWorkers int
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func logger(cmd *cobra.Command) *slog.Logger {
	l, err := newLogger(cmd.ErrOrStderr(), logLevel)
	if err != nil {
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}
	return l
}

func styles(cmd *cobra.Command) viz.Styles {
	color := !noColor
	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !viz.ColorEnabled(f) {
		color = false
	}
	return viz.NewStyles(viz.GetTheme(theme), color)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cstrsim",
		Short:         "closed-loop CSTR control simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := newLogger(io.Discard, logLevel)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envOr("CSTRSIM_DATA", ".cstrsim"), "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("CSTRSIM_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", envOr("CSTRSIM_THEME", viz.ThemeDefault.Name), "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newDescribeCmd(),
		newTuneCmd(),
		newPresetsCmd(),
		newMethodsCmd(),
		newListCmd(),
		newPlotCmd(),
		newPNGCmd(),
		newViewCmd(),
		newExportCSVCmd(),
		newExportJSONCmd(),
		newDeleteCmd(),
	)
	return rootCmd
}

// addScenarioFlags registers the flags selecting and overriding a run
// configuration.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", envOr("CSTRSIM_CONFIG", ""), "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&method, "method", "", "response method (exact, rk4, rk45, euler)")
	cmd.Flags().Float64Var(&horizon, "horizon", 0, "simulated time in seconds")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of output samples")
	cmd.Flags().Float64Var(&maxStep, "max-step", 0, "largest internal step for integrator methods")
	cmd.Flags().Float64Var(&tolerance, "tol", 0, "local error tolerance for rk45 (0 = default)")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a channel parameter, e.g. T.kp=800")
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "error: .env:", err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
