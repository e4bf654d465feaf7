package governor

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/samuelfneumann/rlgov/environment"
)

// Registry owns one Controller per governed core. The set of
// controllers is fixed when the Registry is created, so lookups need
// no locking.
type Registry struct {
	controllers map[int]*Controller
	failed      map[int]error
	closed      atomic.Bool
	log         logr.Logger
}

// NewRegistry activates a controller for each of cores. A core whose
// activation fails is left inactive while every other core is still
// activated; the failures are returned together as *ActivationError
// values combined with multierr, alongside the usable Registry. An
// invalid Config or Options fails every core and returns a nil Registry.
func NewRegistry(ctx context.Context, cores []int, c Config,
	opts Options) (*Registry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		controllers: make(map[int]*Controller, len(cores)),
		failed:      make(map[int]error),
		log:         opts.Logger,
	}

	var errs error
	for _, core := range cores {
		if err := r.activate(ctx, core, c, opts); err != nil {
			r.failed[core] = err
			errs = multierr.Append(errs, &ActivationError{Core: core, Err: err})
			r.log.Error(err, "Could not activate core", "core", core)
			continue
		}
		r.log.Info("Activated core", "core", core,
			"variant", c.ValueFunction.Type())
	}
	return r, errs
}

func (r *Registry) activate(ctx context.Context, core int, c Config,
	opts Options) error {
	if core < 0 {
		return fmt.Errorf("negative core")
	}
	if _, ok := r.controllers[core]; ok {
		return fmt.Errorf("duplicate core")
	}

	for _, collaborator := range []interface{}{opts.Sensor, opts.Actuator} {
		if a, ok := collaborator.(environment.Activator); ok {
			if err := a.Activate(ctx, core); err != nil {
				return err
			}
		}
	}

	controller, err := newController(core, c, opts)
	if err != nil {
		return err
	}
	r.controllers[core] = controller
	return nil
}

// Tick runs one control step on the core named by d
func (r *Registry) Tick(ctx context.Context, d Descriptor) (Result, error) {
	if r.closed.Load() {
		return Result{}, ErrShutdown
	}

	c, ok := r.controllers[d.Core]
	if !ok {
		return Result{}, fmt.Errorf("core %d: %w", d.Core, ErrInactiveCore)
	}
	return c.Tick(ctx, d)
}

// OnTick runs one control step on the core named by d and returns the
// frequency requested for the core. When the core cannot be ticked the
// current frequency is returned together with the error.
func (r *Registry) OnTick(ctx context.Context, d Descriptor) (int, error) {
	res, err := r.Tick(ctx, d)
	if err != nil {
		return d.CurrentFrequency, err
	}
	return res.Target, nil
}

// Controller returns the controller of core
func (r *Registry) Controller(core int) (*Controller, bool) {
	c, ok := r.controllers[core]
	return c, ok
}

// Cores returns the active cores in increasing order
func (r *Registry) Cores() []int {
	cores := make([]int, 0, len(r.controllers))
	for core := range r.controllers {
		cores = append(cores, core)
	}
	sort.Ints(cores)
	return cores
}

// Failed returns the activation failure of each inactive core
func (r *Registry) Failed() map[int]error {
	failed := make(map[int]error, len(r.failed))
	for core, err := range r.failed {
		failed[core] = err
	}
	return failed
}

// Shutdown stops every controller. Ticks in progress complete first.
func (r *Registry) Shutdown() {
	if r.closed.Swap(true) {
		return
	}
	for _, core := range r.Cores() {
		r.controllers[core].Shutdown()
	}
	r.log.Info("Shut down", "cores", len(r.controllers))
}
