package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/optim"
	"github.com/spf13/cobra"
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search channel parameters for the lowest metric",
		Example: `  cstrsim tune --range T.kp=200:1000:5 --range T.ki=10,50,100
  cstrsim tune --preset disturbance --range C_A.kp=100:900:9 --metric C_A.iae`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ranges) == 0 {
				return fmt.Errorf("at least one --range is required")
			}
			cfg, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			if err := experiment.NewRegistry().CheckMetricKey(cfg, tuneMetric); err != nil {
				return err
			}

			names := make([]string, 0, len(ranges))
			values := make([][]float64, 0, len(ranges))
			for _, r := range ranges {
				name, vals, err := optim.ParseRange(r)
				if err != nil {
					return err
				}
				names, values = append(names, name), append(values, vals)
			}

			log := logger(cmd)
			gs := optim.NewGridSearch(names, values).WithLogger(log).WithWorkers(tuneWorkers)
			// Candidate runs only log warnings unless debugging.
			level := "warn"
			if strings.EqualFold(logLevel, "debug") {
				level = "debug"
			}
			quiet, err := newLogger(cmd.ErrOrStderr(), level)
			if err != nil {
				return err
			}
			build := optim.FromConfig(cfg, experiment.WithLogger(quiet))
			best, val, err := gs.Search(cmd.Context(), build, tuneMetric)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := styles(cmd)
			total, failed := gs.Evaluated()
			fmt.Fprintf(out, "%s %d candidates, %d skipped\n", st.Label.Render("evaluated"), total, failed)
			fmt.Fprintf(out, "%s %s = %s\n", st.Label.Render("best"), tuneMetric, st.Value.Render(fmt.Sprintf("%.6g", val)))
			keys := make([]string, 0, len(best))
			for k := range best {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "  --set %s=%g\n", k, best[k])
			}
			return nil
		},
	}
	addScenarioFlags(cmd)
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "parameter range, name=lo:hi:n or name=v1,v2,...")
	cmd.Flags().StringVar(&tuneMetric, "metric", experiment.TotalIAE, "metric to minimize")
	cmd.Flags().IntVar(&tuneWorkers, "workers", 0, "concurrent candidates (0 = one per CPU)")
	return cmd
}
