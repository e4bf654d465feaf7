package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"github.com/samuelfneumann/rlgov/config"
	"github.com/samuelfneumann/rlgov/environment/simulated"
	"github.com/samuelfneumann/rlgov/experiment"
	"github.com/samuelfneumann/rlgov/experiment/tracker"
	"github.com/samuelfneumann/rlgov/experiment/trackers"
	"github.com/samuelfneumann/rlgov/governor"
	"github.com/samuelfneumann/rlgov/utils/progressbar"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

type simulateOptions struct {
	save       string
	volatility float64
	progress   bool
}

func newSimulateCommand(o *rootOptions) *cobra.Command {
	s := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Train the governor against a simulated workload",
		Long: `Simulate trains one controller per configured core against a
synthetic plant whose demand drifts randomly between ticks, and prints the
return and tick outcomes of every core.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.load(cmd)
			if err != nil {
				return err
			}
			log, flush, err := o.logger()
			if err != nil {
				return err
			}
			defer flush()

			return simulate(cmd.Context(), c, s, cmd.OutOrStdout(),
				cmd.ErrOrStderr(), log)
		},
	}

	cmd.Flags().StringVar(&s.save, "save", "",
		"directory to save the learning curve and outcome counts to")
	cmd.Flags().Float64Var(&s.volatility, "volatility",
		simulated.DefaultConfig(1).Volatility,
		"largest change in demand between two ticks")
	cmd.Flags().BoolVar(&s.progress, "progress", true, "display a progress bar")
	return cmd
}

func simulate(ctx context.Context, c config.Config, s *simulateOptions,
	out, progress io.Writer, log logr.Logger) error {
	g, err := c.Governor()
	if err != nil {
		return err
	}
	// The plant settles as soon as a frequency is applied
	g.SettleInterval = 0

	cores := 0
	for _, core := range c.Cores {
		if core+1 > cores {
			cores = core + 1
		}
	}
	plantConfig := simulated.DefaultConfig(cores)
	plantConfig.Volatility = s.volatility
	plant, err := simulated.New(plantConfig, randutils.NewLocked(c.Seed+1))
	if err != nil {
		return err
	}

	registry, err := governor.NewRegistry(ctx, c.Cores, g, governor.Options{
		Sensor:   plant,
		Actuator: plant,
		Rand:     randutils.NewLocked(c.Seed),
		Clock:    clock.RealClock{},
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer registry.Shutdown()

	returns := trackers.NewReturn(filepath.Join(s.save, "return.bin"))
	outcomes := trackers.NewOutcomes(filepath.Join(s.save, "outcomes.bin"))
	exp := experiment.NewOnline(registry, plant, c.Steps, log, returns,
		outcomes)

	// Per-core learning curves
	if s.save != "" {
		for _, core := range registry.Cores() {
			name := fmt.Sprintf("return-core%d.bin", core)
			exp.Register(tracker.Register(
				trackers.NewReturn(filepath.Join(s.save, name)), core))
		}
	}

	if s.progress {
		bar := progressbar.New(progress, 50, c.Steps*len(registry.Cores()),
			clock.RealClock{})
		exp.ShowProgress(bar)
		defer bar.Close()
	}

	if err := exp.Run(ctx); err != nil {
		return err
	}
	if s.save != "" {
		if err := exp.Save(); err != nil {
			return err
		}
	}
	return summarize(out, registry, returns, outcomes)
}

// summarize prints the return, ε and outcomes of every core
func summarize(out io.Writer, registry *governor.Registry,
	returns *trackers.Return, outcomes *trackers.Outcomes) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CORE\tSTEPS\tEPSILON\tRETURN\tMEAN REWARD")
	for _, core := range registry.Cores() {
		c, _ := registry.Controller(core)
		steps := c.Steps()
		mean := 0.0
		if steps > 0 {
			mean = returns.Return(core) / float64(steps)
		}
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\t%.4f\n", core, steps,
			c.Epsilon(), returns.Return(core), mean)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts := outcomes.Counts()
	names := make([]string, 0, len(counts))
	for outcome := range counts {
		names = append(names, string(outcome))
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s: %d\n", name, counts[governor.Outcome(name)])
	}
	return nil
}
