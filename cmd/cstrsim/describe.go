package main

import (
	"fmt"
	"strings"

	"github.com/san-kum/cstrsim/internal/config"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/loop"
	"github.com/san-kum/cstrsim/internal/lti"
	"github.com/san-kum/cstrsim/internal/metrics"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "show the linearized reactor, the loop wiring and the closed-loop poles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario(cmd)
			if err != nil {
				return err
			}
			exp := experiment.New(cfg, experiment.WithLogger(logger(cmd)))
			if err := exp.Setup(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := styles(cmd)
			reactor := exp.Plant()
			fmt.Fprintln(out, st.Header.Render("REACTOR"))
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("inputs "), strings.Join(reactor.Inputs(), ", "))
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("outputs"), strings.Join(reactor.Outputs(), ", "))
			for _, m := range []struct {
				name string
				mat  *mat.Dense
			}{{"A", reactor.A()}, {"B", reactor.B()}, {"C", reactor.C()}, {"D", reactor.D()}} {
				fmt.Fprintf(out, "%s =\n%v\n", m.name, mat.Formatted(m.mat, mat.Prefix(""), mat.Squeeze()))
			}
			if gain, err := lti.DCGain(reactor); err == nil && gain != nil {
				fmt.Fprintf(out, "dc gain =\n%v\n", mat.Formatted(gain, mat.Prefix(""), mat.Squeeze()))
			}

			spec := cfg.LoopSpec()
			conns, _, _, err := loop.Wiring(spec.CVs, spec.MVs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, st.Header.Render("WIRING"))
			for _, c := range conns {
				fmt.Fprintln(out, "  "+c.String())
			}

			closed := exp.System()
			fmt.Fprintln(out)
			fmt.Fprintln(out, st.Header.Render("CLOSED LOOP"))
			fmt.Fprintf(out, "%s %d\n", st.Label.Render("states "), closed.StateDim())
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("inputs "), strings.Join(closed.Inputs(), ", "))
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("outputs"), strings.Join(closed.Outputs(), ", "))
			poles, err := lti.Poles(closed)
			if err != nil {
				return err
			}
			stable, _ := lti.IsStable(closed)
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("poles  "), st.Stability(stable))
			for _, p := range poles {
				fmt.Fprintf(out, "  %+.6g %+.6gi\n", real(p), imag(p))
			}
			return nil
		},
	}
	addScenarioFlags(cmd)
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range config.ListPresets() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset %q", args[0])
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "list response methods and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "methods: %s\n", strings.Join(reg.ListMethods(), ", "))
			fmt.Fprintf(out, "metrics: %s\n", strings.Join(reg.ListMetrics(), ", "))
			var actuation []string
			for _, m := range metrics.Actuation() {
				actuation = append(actuation, m.Name())
			}
			fmt.Fprintf(out, "command metrics: %s\n", strings.Join(actuation, ", "))
			return nil
		},
	}
}
