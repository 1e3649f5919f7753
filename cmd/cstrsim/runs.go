package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/cstrsim/internal/experiment"
	"github.com/san-kum/cstrsim/internal/storage"
	"github.com/san-kum/cstrsim/internal/viz"
	"github.com/spf13/cobra"
)

func addChartFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&plotWidth, "width", 80, "chart width in columns")
	cmd.Flags().IntVar(&plotHeight, "height", 10, "chart height in rows")
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMETHOD\tHORIZON\tSAMPLES\tSTABLE\tTOTAL IAE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4gs\t%d\t%t\t%.6g\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.Horizon,
			run.Samples,
			run.Stable,
			run.Metrics[experiment.TotalIAE],
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []viz.Panel, error) {
	store := storage.New(dataDir)
	meta, err := store.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	series, err := store.LoadSeries(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, viz.RunPanels(meta, series), nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, panels, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if len(panels) == 0 {
				return fmt.Errorf("no data to plot")
			}
			out := cmd.OutOrStdout()
			st := styles(cmd)
			fmt.Fprintf(out, "%s %s\n", st.Label.Render("run:"), meta.ID)
			fmt.Fprintf(out, "%s %d\n\n", st.Label.Render("samples:"), meta.Samples)
			for _, p := range panels {
				fmt.Fprintln(out, viz.Chart(p, plotWidth, plotHeight, st))
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, viz.MetricsTable(meta.Channels, st))
			return nil
		},
	}
	addChartFlags(cmd)
	return cmd
}

func newPNGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render run results to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, panels, err := loadRun(args[0])
			if err != nil {
				return err
			}
			path := outFile
			if path == "" {
				path = args[0] + ".png"
			}
			if err := writePNGFile(path, panels); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.png)")
	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "browse stored runs interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := viz.NewViewer(storage.New(dataDir), styles(cmd))
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(v, tea.WithAltScreen()).Run()
			return err
		},
	}
}

// withOutput runs write against --output, or stdout when it is unset.
func withOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	if outFile == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newExportCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutput(cmd, func(w io.Writer) error {
				return storage.New(dataDir).ExportCSV(w, args[0])
			})
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newExportJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOutput(cmd, func(w io.Writer) error {
				return storage.New(dataDir).ExportJSON(w, args[0])
			})
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(dataDir).Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}
