package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/dataset"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
	"github.com/Paulumo/System-Remaster-sub001/internal/raster"
	"github.com/Paulumo/System-Remaster-sub001/internal/table"
)

// options are the flags shared by every subcommand.
type options struct {
	datasetFile string
	unit        string
	verbose     bool
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.datasetFile, "dataset", "", "dataset YAML or JSON file (default: embedded reference chart)")
	fs.StringVar(&o.unit, "unit", "kg", "display weight unit: kg or lb")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log progress to stderr")
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *options) load() (*dataset.Loaded, perf.DisplayUnit, error) {
	unit, err := perf.ParseDisplayUnit(o.unit)
	if err != nil {
		return nil, "", err
	}
	var l *dataset.Loaded
	if o.datasetFile == "" {
		l, err = dataset.Default()
	} else {
		l, err = dataset.LoadFile(o.datasetFile)
	}
	if err != nil {
		return nil, "", err
	}
	return l, unit, nil
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "hogectl",
		Short:         "Query the HOGE gross weight chart",
		Long:          "hogectl interpolates the hover-out-of-ground-effect weight chart and its wind credit panel.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.addFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newWeightCommand(opts),
		newCreditCommand(opts),
		newCurveCommand(opts),
		newIntersectCommand(opts),
		newRenderCommand(opts),
		newTableCommand(opts),
	)
	return cmd
}

func newWeightCommand(opts *options) *cobra.Command {
	var oat, altFt float64
	cmd := &cobra.Command{
		Use:   "weight",
		Short: "Maximum HOGE gross weight for a temperature and pressure altitude",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			res := l.Family.WeightAt(oat, perf.FeetToChart(altFt))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "OAT %g C, %g ft: %.0f %s\n", oat, altFt, unit.FromChart(res.Weight), unit)
			if res.Exact() {
				fmt.Fprintf(out, "curve: %g C\n", res.SourceOATs[0])
			} else if len(res.SourceOATs) == 2 {
				fmt.Fprintf(out, "curves: %g C and %g C\n", res.SourceOATs[0], res.SourceOATs[1])
			}
			if res.OutOfEnvelope() {
				fmt.Fprintln(out, "warning: outside chart data")
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&oat, "oat", 0, "outside air temperature, deg C")
	cmd.Flags().Float64Var(&altFt, "altitude-ft", 0, "pressure altitude, ft")
	cmd.MarkFlagRequired("oat")
	cmd.MarkFlagRequired("altitude-ft")
	return cmd
}

func newCreditCommand(opts *options) *cobra.Command {
	var wind, weightKg, benefit float64
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Headwind weight credit for a base gross weight",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			credit := perf.CreditFor(wind, weightKg, benefit)
			tableCredit, clamped := l.Wind.TableCredit(wind, perf.KgToChart(weightKg))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wind %g kt at %g%% benefit: +%.0f %s (total %.0f %s)\n",
				wind, benefit, unit.FromKg(credit), unit, unit.FromKg(weightKg+credit), unit)
			fmt.Fprintf(out, "reference table: +%.0f %s", unit.FromKg(tableCredit), unit)
			if clamped {
				fmt.Fprint(out, " (clamped)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().Float64Var(&wind, "wind", 0, "headwind component, kt")
	cmd.Flags().Float64Var(&weightKg, "weight-kg", 0, "base gross weight, kg")
	cmd.Flags().Float64Var(&benefit, "benefit", 100, "share of the wind credit to apply, percent")
	cmd.MarkFlagRequired("wind")
	cmd.MarkFlagRequired("weight-kg")
	return cmd
}

func newCurveCommand(opts *options) *cobra.Command {
	var oat float64
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the chart curve for a temperature",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			curve := l.Family.CurveForTemperature(oat)

			w := prettytable.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			w.SetTitle(fmt.Sprintf("OAT %s C", strconv.FormatFloat(curve.OAT, 'f', -1, 64)))
			w.AppendHeader(prettytable.Row{"#", "Altitude ft", "Weight " + string(unit)})
			for i, p := range curve.Points {
				w.AppendRow(prettytable.Row{i, fmt.Sprintf("%.0f", p.Altitude*perf.FeetPerThousand), fmt.Sprintf("%.0f", unit.FromChart(p.Weight))})
			}
			w.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&oat, "oat", 0, "outside air temperature, deg C")
	cmd.MarkFlagRequired("oat")
	return cmd
}

func newIntersectCommand(opts *options) *cobra.Command {
	var (
		oat, probe float64
		axis       string
	)
	cmd := &cobra.Command{
		Use:   "intersect",
		Short: "Where a horizontal or vertical probe crosses a temperature curve",
		Long: "intersect probes the curve for --oat. With --axis altitude the probe is a pressure " +
			"altitude in ft and the crossings are weights; with --axis weight the probe is a weight " +
			"in kg and the crossings are altitudes in ft.",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			curve := l.Family.CurveForTemperature(oat)
			out := cmd.OutOrStdout()
			switch axis {
			case "altitude":
				for _, wt := range perf.Intersect(curve, perf.FeetToChart(probe), perf.ProbeAltitude) {
					fmt.Fprintf(out, "%.0f %s\n", unit.FromChart(wt), unit)
				}
			case "weight":
				for _, alt := range perf.Intersect(curve, perf.KgToChart(probe), perf.ProbeWeight) {
					fmt.Fprintf(out, "%.0f ft\n", alt*perf.FeetPerThousand)
				}
			default:
				return fmt.Errorf("--axis must be altitude or weight, got %q", axis)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&oat, "oat", 0, "outside air temperature, deg C")
	cmd.Flags().Float64Var(&probe, "probe", 0, "probe value: ft for --axis altitude, kg for --axis weight")
	cmd.Flags().StringVar(&axis, "axis", "altitude", "probe axis: altitude or weight")
	cmd.MarkFlagRequired("oat")
	cmd.MarkFlagRequired("probe")
	return cmd
}

func newRenderCommand(opts *options) *cobra.Command {
	var (
		oat, altFt, wind, benefit float64
		output                    string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the chart with the query overlay to a PNG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			q := chart.OverlayQuery{OAT: oat, AltitudeFt: altFt, Unit: unit}
			if cmd.Flags().Changed("wind") {
				q.WindSpeed = &wind
				q.BenefitPercent = &benefit
			}
			frame := chart.NewRenderer(l.Family, l.Wind).Render(q)

			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := raster.EncodePNG(w, frame); err != nil {
				return fmt.Errorf("encoding png: %w", err)
			}
			opts.logger().Debug("chart rendered", "output", output, "ops", len(frame.Ops))
			return nil
		},
	}
	cmd.Flags().Float64Var(&oat, "oat", 0, "outside air temperature, deg C")
	cmd.Flags().Float64Var(&altFt, "altitude-ft", 0, "pressure altitude, ft")
	cmd.Flags().Float64Var(&wind, "wind", 0, "headwind component, kt (omit for no wind overlay)")
	cmd.Flags().Float64Var(&benefit, "benefit", 100, "share of the wind credit to apply, percent")
	cmd.Flags().StringVarP(&output, "output", "o", "hoge.png", "PNG file to write, - for stdout")
	cmd.MarkFlagRequired("oat")
	cmd.MarkFlagRequired("altitude-ft")
	return cmd
}

func newTableCommand(opts *options) *cobra.Command {
	var (
		oatMin, oatMax, oatStep float64
		altMin, altMax, altStep float64
		workers, maxCells       int
		markdown                bool
	)
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Tabulate maximum gross weight over temperature and altitude",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, unit, err := opts.load()
			if err != nil {
				return err
			}
			gen := table.NewGenerator(workers, maxCells, opts.logger())
			altLo, altHi, altSt := perf.FeetToChart(altMin), perf.FeetToChart(altMax), perf.FeetToChart(altStep)
			nOATs, err := table.RangeLen(oatMin, oatMax, oatStep)
			if err != nil {
				return fmt.Errorf("temperature range: %w", err)
			}
			nAlts, err := table.RangeLen(altLo, altHi, altSt)
			if err != nil {
				return fmt.Errorf("altitude range: %w", err)
			}
			if err := gen.CheckGrid(nOATs, nAlts); err != nil {
				return err
			}

			oats, err := table.Range(oatMin, oatMax, oatStep)
			if err != nil {
				return fmt.Errorf("temperature range: %w", err)
			}
			alts, err := table.Range(altLo, altHi, altSt)
			if err != nil {
				return fmt.Errorf("altitude range: %w", err)
			}

			rows, err := gen.Generate(cmd.Context(), l.Family, table.Grid{OATs: oats, Altitudes: alts})
			if err != nil {
				return err
			}

			w := prettytable.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			header := prettytable.Row{"OAT C \\ ft"}
			for _, a := range alts {
				header = append(header, fmt.Sprintf("%.0f", a*perf.FeetPerThousand))
			}
			w.AppendHeader(header)
			for _, r := range rows {
				row := prettytable.Row{strconv.FormatFloat(r.OAT, 'f', -1, 64)}
				for _, c := range r.Cells {
					s := fmt.Sprintf("%.0f", unit.FromChart(c.Result.Weight))
					if c.Result.OutOfEnvelope() {
						s += "*"
					}
					row = append(row, s)
				}
				w.AppendRow(row)
			}
			w.SetCaption("weights in %s; * outside chart data", unit)
			if markdown {
				w.RenderMarkdown()
			} else {
				w.Render()
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&oatMin, "oat-min", 0, "lowest temperature, deg C")
	fs.Float64Var(&oatMax, "oat-max", 40, "highest temperature, deg C")
	fs.Float64Var(&oatStep, "oat-step", 10, "temperature step, deg C")
	fs.Float64Var(&altMin, "alt-min", 0, "lowest pressure altitude, ft")
	fs.Float64Var(&altMax, "alt-max", 8000, "highest pressure altitude, ft")
	fs.Float64Var(&altStep, "alt-step", 1000, "altitude step, ft")
	fs.IntVar(&workers, "workers", runtime.NumCPU(), "parallel workers")
	fs.IntVar(&maxCells, "max-cells", 10000, "refuse grids larger than this")
	fs.BoolVar(&markdown, "markdown", false, "render the table as markdown")
	return cmd
}
