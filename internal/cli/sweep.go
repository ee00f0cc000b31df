package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/monitoring"
	"github.com/banshee-data/ensnano-geometry/internal/sweep"
)

type sweepOpts struct {
	relaxFlags
	steric    string
	crossover string
	seeds     string
	json      bool
}

// sweepCommand relaxes a design once per weight combination and seed and
// prints a summary per combination.
func (c *CLI) sweepCommand() *cobra.Command {
	var opts sweepOpts
	cmd := &cobra.Command{
		Use:   "sweep <design>",
		Short: "Sweep strain weights and seeds of the relaxer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			cfg, err := c.relaxConfig(cmd, &opts.relaxFlags)
			if err != nil {
				return err
			}
			if err := req.Validate(cfg); err != nil {
				return err
			}
			d, err := c.loadDesign(args[0])
			if err != nil {
				return err
			}

			logger := monitoring.FromContext(cmd.Context())
			progress := monitoring.NewProgress(logger)
			results, err := sweep.Sweep(cmd.Context(), d, cfg, req, func(done, total int, r sweep.ComboResult) {
				logger.Debug("combination done", "done", done, "total", total, "strain", r.StrainMean)
			})
			if err != nil {
				return err
			}
			progress.Done(fmt.Sprintf("swept %d combinations", len(results)))

			if opts.json {
				return printJSON(cmd.OutOrStdout(), results)
			}
			return printSweep(cmd.OutOrStdout(), results)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.steric, "steric", "", "steric weights: a,b,c or min:max:step")
	cmd.Flags().StringVar(&opts.crossover, "crossover", "", "crossover weights: a,b,c or min:max:step")
	cmd.Flags().StringVar(&opts.seeds, "seeds", "", "seeds: a,b,c or first-last")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the results as JSON")
	return cmd
}

func (o *sweepOpts) request() (sweep.Request, error) {
	var req sweep.Request
	var err error
	if req.StericWeights, err = sweep.ParseFloatList(o.steric); err != nil {
		return req, fmt.Errorf("--steric: %w", err)
	}
	if req.CrossoverWeights, err = sweep.ParseFloatList(o.crossover); err != nil {
		return req, fmt.Errorf("--crossover: %w", err)
	}
	if req.Seeds, err = sweep.ParseSeedList(o.seeds); err != nil {
		return req, fmt.Errorf("--seeds: %w", err)
	}
	return req, nil
}

func printSweep(w io.Writer, results []sweep.ComboResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STERIC\tCROSSOVER\tRUNS\tSTRAIN\tSTDDEV\tSTEPS\tCONVERGED\tDIVERGED")
	for _, r := range results {
		fmt.Fprintf(tw, "%g\t%g\t%d\t%.6g\t%.3g\t%.1f\t%.0f%%\t%d\n",
			r.StericWeight, r.CrossoverWeight, r.Runs, r.StrainMean, r.StrainStddev,
			r.StepsMean, 100*r.ConvergedFraction, r.Diverged)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if best, ok := sweep.Best(results); ok {
		fmt.Fprintf(w, "\nbest: steric=%g crossover=%g strain=%.6g\n",
			best.StericWeight, best.CrossoverWeight, best.StrainMean)
	}
	return nil
}
