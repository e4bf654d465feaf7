package experiment

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/samuelfneumann/rlgov/experiment/tracker"
	"github.com/samuelfneumann/rlgov/governor"
)

// Periodic is an Experiment that ticks every active core of a Registry
// once per interval until its context is done. It stands in for the
// periodic trigger of a kernel governor.
type Periodic struct {
	trackerSet
	registry *governor.Registry
	source   DescriptorSource
	interval time.Duration
	clock    clock.WithTicker
	log      logr.Logger
}

var _ Experiment = (*Periodic)(nil)

// NewPeriodic returns a new Periodic experiment ticking each core of r
// every interval on clk
func NewPeriodic(r *governor.Registry, source DescriptorSource,
	interval time.Duration, clk clock.WithTicker, log logr.Logger,
	t ...tracker.Tracker) (*Periodic, error) {
	if interval <= 0 {
		return nil, errors.New("newPeriodic: interval must be positive")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Periodic{
		trackerSet: trackerSet{trackers: t},
		registry: r,
		source:   source,
		interval: interval,
		clock:    clk,
		log:      log,
	}, nil
}

// Run ticks every core until ctx is done, which is not an error. A
// descriptor which cannot be read skips the tick of that core.
func (p *Periodic) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, core := range p.registry.Cores() {
		core := core
		g.Go(func() error {
			return p.runCore(ctx, core)
		})
	}
	return g.Wait()
}

func (p *Periodic) runCore(ctx context.Context, core int) error {
	log := p.log.WithValues("core", core)
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}

		d, err := p.source.Descriptor(ctx, core)
		if err != nil {
			log.V(1).Info("Skipping tick", "error", err.Error())
			continue
		}
		res, err := p.registry.Tick(ctx, d)
		if errors.Is(err, governor.ErrShutdown) {
			return nil
		} else if err != nil {
			return err
		}
		p.track(res)
	}
}
