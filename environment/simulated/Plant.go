// Package simulated implements a synthetic multi-core plant. Each core
// runs a randomly drifting workload; the plant reports features that
// react to the frequency chosen for the core, so that learning can be
// exercised without cpufreq hardware.
package simulated

import (
	"context"
	"fmt"
	"sync"

	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/governor"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
	"github.com/samuelfneumann/rlgov/utils/randutils"
)

// Config describes a simulated plant. Frequencies are in kHz.
type Config struct {
	Cores        int
	MinFrequency int
	MaxFrequency int
	Step         int // Granularity of the available frequencies

	// Volatility is the largest change in demand between two calls to
	// Advance
	Volatility float64
}

// DefaultConfig returns a plant of cores cores running between 800 MHz
// and 2 GHz in 100 MHz steps
func DefaultConfig(cores int) Config {
	return Config{
		Cores:        cores,
		MinFrequency: 800000,
		MaxFrequency: 2000000,
		Step:         100000,
		Volatility:   0.05,
	}
}

// Validate returns an error if the Config cannot describe a plant
func (c Config) Validate() error {
	if c.Cores < 1 {
		return fmt.Errorf("simulated: need at least 1 core, got %d", c.Cores)
	}
	if c.MinFrequency <= 0 || c.MinFrequency > c.MaxFrequency {
		return fmt.Errorf("simulated: invalid frequency range [%d, %d]",
			c.MinFrequency, c.MaxFrequency)
	}
	if c.Step <= 0 {
		return fmt.Errorf("simulated: step must be positive, got %d", c.Step)
	}
	if c.Volatility < 0 || c.Volatility > 1 {
		return fmt.Errorf("simulated: volatility must be in [0, 1], got %v",
			c.Volatility)
	}
	return nil
}

type core struct {
	frequency int
	demand    float64 // Fraction of the maximum frequency the load needs
}

// Plant is a simulated set of cores. It implements both
// environment.Sensor and environment.Actuator and is safe for
// concurrent use.
type Plant struct {
	mu        sync.Mutex
	cores     []core
	available []int
	config    Config
	rng       randutils.Source
}

// New returns a new Plant. Every core starts at its minimum frequency
// with a random demand.
func New(c Config, rng randutils.Source) (*Plant, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cores := make([]core, c.Cores)
	for i := range cores {
		cores[i] = core{frequency: c.MinFrequency, demand: rng.Float64()}
	}

	return &Plant{
		cores:     cores,
		available: environment.Steps(c.MinFrequency, c.MaxFrequency, c.Step),
		config:    c,
		rng:       rng,
	}, nil
}

// Cores returns the number of simulated cores
func (p *Plant) Cores() int {
	return len(p.cores)
}

// Bounds returns the frequency range of every core
func (p *Plant) Bounds() (min, max int) {
	return p.config.MinFrequency, p.config.MaxFrequency
}

// Frequency returns the current frequency of core
func (p *Plant) Frequency(core int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.core(core)
	if err != nil {
		return 0, err
	}
	return c.frequency, nil
}

// Utilization returns the fraction of core's current capacity its
// workload uses
func (p *Plant) Utilization(core int) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.core(core)
	if err != nil {
		return 0, err
	}
	return p.utilization(c), nil
}

// Advance moves the demand of core by a random step of at most the
// configured volatility
func (p *Plant) Advance(core int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.core(core); err != nil {
		return
	}
	step := p.config.Volatility * (2*p.rng.Float64() - 1)
	p.cores[core].demand = floatutils.Clip(p.cores[core].demand+step, 0, 1)
}

// Descriptor returns the operating point of core as a periodic trigger
// would report it
func (p *Plant) Descriptor(ctx context.Context, core int) (governor.Descriptor,
	error) {
	if err := ctx.Err(); err != nil {
		return governor.Descriptor{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.core(core)
	if err != nil {
		return governor.Descriptor{}, err
	}
	return governor.Descriptor{
		Core:                core,
		CurrentFrequency:    c.frequency,
		MinFrequency:        p.config.MinFrequency,
		MaxFrequency:        p.config.MaxFrequency,
		ObservedUtilization: p.utilization(c),
	}, nil
}

// SampleState implements the environment.Sensor interface
func (p *Plant) SampleState(ctx context.Context, core int) ([]float64,
	error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.core(core)
	if err != nil {
		return nil, err
	}

	util := p.utilization(c)
	load := float64(c.frequency) / float64(p.config.MaxFrequency)
	features := make([]float64, timestep.StateDim)
	features[timestep.Utilization] = util
	features[timestep.Frequency] = p.offset(c.frequency)
	features[timestep.Temperature] = floatutils.Clip(0.3+0.5*load*util, 0, 1)
	features[timestep.MemoryPressure] = floatutils.Clip(0.2+0.3*c.demand, 0,
		1)
	features[timestep.IOWait] = floatutils.Clip(0.1*(1-util), 0, 1)
	return features, nil
}

// ApplyFrequency implements the environment.Actuator interface
func (p *Plant) ApplyFrequency(ctx context.Context, core, target int,
	rel environment.Relation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.core(core); err != nil {
		return 0, err
	}
	achieved := environment.Round(p.available, target, rel)
	p.cores[core].frequency = achieved
	return achieved, nil
}

func (p *Plant) core(i int) (core, error) {
	if i < 0 || i >= len(p.cores) {
		return core{}, fmt.Errorf("simulated: no core %d", i)
	}
	return p.cores[i], nil
}

// utilization is demand relative to the capacity of the current
// frequency, saturating at 1
func (p *Plant) utilization(c core) float64 {
	capacity := float64(c.frequency) / float64(p.config.MaxFrequency)
	return floatutils.Clip(c.demand/capacity, 0, 1)
}

func (p *Plant) offset(frequency int) float64 {
	span := p.config.MaxFrequency - p.config.MinFrequency
	if span == 0 {
		return 0
	}
	return float64(frequency-p.config.MinFrequency) / float64(span)
}
