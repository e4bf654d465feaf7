package experiment

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/samuelfneumann/rlgov/experiment/tracker"
	"github.com/samuelfneumann/rlgov/governor"
)

// Online is an Experiment that ticks every active core of a Registry
// a fixed number of times. Cores run concurrently, each in its own
// goroutine, while the ticks of a single core run in order.
type Online struct {
	trackerSet
	registry *governor.Registry
	source   DescriptorSource
	steps    int
	progress Progress
	log      logr.Logger
}

var _ Experiment = (*Online)(nil)

// NewOnline creates and returns a new online experiment which ticks
// each core of r steps times using the descriptors of source. The t
// parameter is a slice of tracker.Tracker which determine what data is
// saved.
func NewOnline(r *governor.Registry, source DescriptorSource, steps int,
	log logr.Logger, t ...tracker.Tracker) *Online {
	return &Online{
		trackerSet: trackerSet{trackers: t},
		registry: r,
		source:   source,
		steps:    steps,
		log:      log,
	}
}

// ShowProgress reports every tick to p
func (o *Online) ShowProgress(p Progress) {
	o.progress = p
}

// Run runs the entire experiment. The first core which fails cancels
// the others and its error is returned.
func (o *Online) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, core := range o.registry.Cores() {
		core := core
		g.Go(func() error {
			return o.runCore(ctx, core)
		})
	}
	return g.Wait()
}

func (o *Online) runCore(ctx context.Context, core int) error {
	log := o.log.WithValues("core", core)
	advancer, _ := o.source.(Advancer)

	for i := 0; i < o.steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		d, err := o.source.Descriptor(ctx, core)
		if err != nil {
			return fmt.Errorf("core %d: %w", core, err)
		}
		res, err := o.registry.Tick(ctx, d)
		if err != nil {
			return fmt.Errorf("core %d: %w", core, err)
		}
		o.track(res)

		if advancer != nil {
			advancer.Advance(core)
		}
		if o.progress != nil {
			o.report()
		}
	}

	log.V(1).Info("Finished", "steps", o.steps)
	return nil
}

// report updates the progress. The progress is shared by all cores and
// guarded by the tracking lock.
func (o *Online) report() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Increment()
	o.progress.Display()
}
