// Package cmd implements the rlgov command line interface
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samuelfneumann/rlgov/config"
)

type rootOptions struct {
	configFile string
	verbosity  int
	dev        bool
}

// NewRootCommand returns the rlgov command with all of its subcommands
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "rlgov",
		Short: "Reinforcement learning CPU frequency governor",
		Long: `rlgov governs the frequency of each CPU core with its own
reinforcement learning controller. On every tick a controller samples the
state of its core, picks a frequency change ε-greedily, actuates it through
cpufreq and learns from the reward it observes.

Three learners are available: tabular Q-learning (single), tabular double
Q-learning (double) and a two layer Q-network with experience replay and a
target network (deepq).

Examples:
  rlgov run --variant deepq --cores 0,1,2,3 --metrics-addr :9090
  rlgov simulate --variant double --steps 5000
  rlgov config --variant deepq > rlgov.yaml`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "YAML configuration file")
	flags.IntVarP(&o.verbosity, "verbosity", "v", 0,
		"log verbosity, 1 logs every tick")
	flags.BoolVar(&o.dev, "dev", false, "human readable development logs")
	config.AddFlags(flags)

	root.AddCommand(
		newRunCommand(o),
		newSimulateCommand(o),
		newConfigCommand(o),
	)
	return root
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load returns the configuration selected by the flags of cmd
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	return config.Load(viper.New(), cmd.Flags(), o.configFile)
}

// logger builds the zap logger behind the returned logr.Logger. The
// returned function flushes buffered entries.
func (o *rootOptions) logger() (logr.Logger, func(), error) {
	zc := zap.NewProductionConfig()
	if o.dev {
		zc = zap.NewDevelopmentConfig()
	}
	// logr verbosity V(n) is zap level -n
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-o.verbosity))

	z, err := zc.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("could not build "+
			"logger: %w", err)
	}
	return zapr.NewLogger(z), func() { _ = z.Sync() }, nil
}
