package cpufreq

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/samuelfneumann/rlgov/environment"
)

// Governor is the scaling governor a core must run for its frequency
// to be set from user space
const Governor = "userspace"

// Actuator sets core frequencies through the scaling_setspeed file of
// the userspace cpufreq governor
type Actuator struct {
	root string
	log  logr.Logger

	mu        sync.RWMutex
	available map[int][]int
}

// NewActuator returns an Actuator for sysfs mounted at sysPath
func NewActuator(sysPath string, log logr.Logger) *Actuator {
	return &Actuator{
		root:      sysPath,
		log:       log,
		available: make(map[int][]int),
	}
}

func (a *Actuator) path(core int, file string) string {
	return filepath.Join(a.root, "devices", "system", "cpu",
		fmt.Sprintf("cpu%d", core), "cpufreq", file)
}

// Activate implements the environment.Activator interface. It checks
// that core runs the userspace governor and records the frequencies
// the core supports.
func (a *Actuator) Activate(ctx context.Context, core int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	governor, err := a.read(core, "scaling_governor")
	if err != nil {
		return err
	}
	if governor != Governor {
		return fmt.Errorf("cpufreq: cpu%d runs the %q governor, want %q",
			core, governor, Governor)
	}

	available, err := a.frequencies(core)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.available[core] = available
	a.mu.Unlock()

	a.log.V(1).Info("Activated cpufreq", "core", core,
		"frequencies", len(available))
	return nil
}

// frequencies returns the sorted frequencies supported by core. Drivers
// without a frequency table are assumed to support every frequency
// between the cpuinfo bounds in 100 MHz steps.
func (a *Actuator) frequencies(core int) ([]int, error) {
	table, err := a.read(core, "scaling_available_frequencies")
	if err == nil {
		available, err := parseFrequencies(table)
		if err != nil {
			return nil, err
		}
		if len(available) > 0 {
			return available, nil
		}
	}

	min, err := a.readInt(core, "cpuinfo_min_freq")
	if err != nil {
		return nil, err
	}
	max, err := a.readInt(core, "cpuinfo_max_freq")
	if err != nil {
		return nil, err
	}
	return environment.Steps(min, max, 100000), nil
}

// ApplyFrequency implements the environment.Actuator interface. The
// target is rounded to a supported frequency according to rel before
// it is written.
func (a *Actuator) ApplyFrequency(ctx context.Context, core, target int,
	rel environment.Relation) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	available, ok := a.available[core]
	a.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("cpufreq: cpu%d has not been activated", core)
	}

	freq := environment.Round(available, target, rel)
	err := os.WriteFile(a.path(core, "scaling_setspeed"),
		[]byte(strconv.Itoa(freq)), 0o644)
	if err != nil {
		return 0, fmt.Errorf("cpufreq: %w", err)
	}

	achieved, err := a.readInt(core, "scaling_cur_freq")
	if err != nil {
		return 0, err
	}
	return achieved, nil
}

func (a *Actuator) read(core int, file string) (string, error) {
	data, err := os.ReadFile(a.path(core, file))
	if err != nil {
		return "", fmt.Errorf("cpufreq: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *Actuator) readInt(core int, file string) (int, error) {
	s, err := a.read(core, file)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("cpufreq: parse %s of cpu%d: %w", file, core, err)
	}
	return v, nil
}

// parseFrequencies parses a whitespace separated list of frequencies
// into increasing order
func parseFrequencies(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("cpufreq: parse frequency %q: %w", f, err)
		}
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}
