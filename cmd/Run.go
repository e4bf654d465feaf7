package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/samuelfneumann/rlgov/config"
	"github.com/samuelfneumann/rlgov/environment/cpufreq"
	"github.com/samuelfneumann/rlgov/experiment"
	"github.com/samuelfneumann/rlgov/governor"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

func newRunCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Govern the frequency of the configured cores",
		Long: `Run governs the configured cores through the cpufreq userspace
governor until it is interrupted. Every core must already use the userspace
scaling governor; cores which cannot be activated are reported and skipped.`,
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

			return run(cmd.Context(), c, log)
		},
	}
}

func run(ctx context.Context, c config.Config, log logr.Logger) error {
	g, err := c.Governor()
	if err != nil {
		return err
	}

	sensor, err := cpufreq.NewSensor(c.Procfs, c.Sysfs, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := governor.NewMetrics(reg)
	if err != nil {
		return err
	}

	registry, err := governor.NewRegistry(ctx, c.Cores, g, governor.Options{
		Sensor:   sensor,
		Actuator: cpufreq.NewActuator(c.Sysfs, log),
		Rand:     randutils.NewLocked(c.Seed),
		Clock:    clock.RealClock{},
		Metrics:  metrics,
		Logger:   log,
	})
	if registry == nil {
		return err
	} else if len(registry.Cores()) == 0 {
		return fmt.Errorf("no core could be activated: %w", err)
	} else if err != nil {
		log.Error(err, "Governing a subset of the cores",
			"cores", registry.Cores())
	}
	defer registry.Shutdown()

	exp, err := experiment.NewPeriodic(registry, sensor, c.Interval,
		clock.RealClock{}, log)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	if c.MetricsAddr != "" {
		serveMetrics(ctx, group, c.MetricsAddr, reg, log)
	}
	group.Go(func() error {
		log.Info("Governing", "cores", registry.Cores(),
			"variant", c.Variant, "interval", c.Interval)
		return exp.Run(ctx)
	})
	return group.Wait()
}

// serveMetrics serves the metrics of reg on addr until ctx is done
func serveMetrics(ctx context.Context, group *errgroup.Group, addr string,
	reg *prometheus.Registry, log logr.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	group.Go(func() error {
		log.Info("Serving metrics", "addr", addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		defer cancel()
		return server.Shutdown(shutdown)
	})
}
