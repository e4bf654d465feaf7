// Package cpufreq implements the environment.Sensor and
// environment.Actuator interfaces on Linux, using procfs for load and
// memory, and the cpufreq and thermal classes of sysfs.
package cpufreq

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"

	"github.com/samuelfneumann/rlgov/governor"
	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Sensor samples the features of a core. Utilization and I/O wait are
// measured over the interval since the previous sample of the same
// core; the first sample of a core measures since boot.
type Sensor struct {
	proc procfs.FS
	sys  sysfs.FS
	log  logr.Logger

	mu   sync.Mutex
	prev map[int]procfs.CPUStat

	// Load seen by Descriptor, kept apart from the load seen by
	// SampleState so the two intervals do not interfere
	prevTrigger map[int]procfs.CPUStat
}

// NewSensor returns a Sensor reading procfs mounted at procPath and
// sysfs mounted at sysPath
func NewSensor(procPath, sysPath string, log logr.Logger) (*Sensor, error) {
	proc, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("cpufreq: %w", err)
	}
	sys, err := sysfs.NewFS(sysPath)
	if err != nil {
		return nil, fmt.Errorf("cpufreq: %w", err)
	}

	return &Sensor{
		proc:        proc,
		sys:         sys,
		log:         log,
		prev:        make(map[int]procfs.CPUStat),
		prevTrigger: make(map[int]procfs.CPUStat),
	}, nil
}

// SampleState implements the environment.Sensor interface. Load and
// frequency are required; missing thermal or memory information is
// reported as 0.
func (s *Sensor) SampleState(ctx context.Context, core int) ([]float64,
	error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	features := make([]float64, timestep.StateDim)

	util, iowait, err := s.load(core, s.prev)
	if err != nil {
		return nil, err
	}
	features[timestep.Utilization] = util
	features[timestep.IOWait] = iowait

	if features[timestep.Frequency], err = s.frequency(core); err != nil {
		return nil, err
	}

	zones, err := s.sys.ClassThermalZoneStats()
	if err != nil {
		s.log.V(1).Info("No thermal zones", "error", err.Error())
	}
	features[timestep.Temperature] = temperature(zones)

	mem, err := s.proc.Meminfo()
	if err != nil {
		s.log.V(1).Info("No memory information", "error", err.Error())
	}
	features[timestep.MemoryPressure] = memoryPressure(mem)

	return features, nil
}

// load returns the utilization and I/O wait fractions of core since
// the sample recorded in prev
func (s *Sensor) load(core int, prev map[int]procfs.CPUStat) (util,
	iowait float64, err error) {
	stat, err := s.proc.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("cpufreq: %w", err)
	}
	cur, ok := stat.CPU[int64(core)]
	if !ok {
		return 0, 0, fmt.Errorf("cpufreq: no statistics for cpu%d", core)
	}

	s.mu.Lock()
	last := prev[core]
	prev[core] = cur
	s.mu.Unlock()

	util, iowait = cpuLoad(last, cur)
	return util, iowait, nil
}

// frequency returns the normalized frequency offset of core
func (s *Sensor) frequency(core int) (float64, error) {
	stat, err := s.cpufreq(core)
	if err != nil {
		return 0, err
	}
	return frequencyOffset(stat)
}

func (s *Sensor) cpufreq(core int) (sysfs.SystemCPUCpufreqStats, error) {
	stats, err := s.sys.SystemCpufreq()
	if err != nil {
		return sysfs.SystemCPUCpufreqStats{}, fmt.Errorf("cpufreq: %w", err)
	}

	name := strconv.Itoa(core)
	for _, stat := range stats {
		if stat.Name == name {
			return stat, nil
		}
	}
	return sysfs.SystemCPUCpufreqStats{}, fmt.Errorf("cpufreq: no cpufreq "+
		"statistics for cpu%d", core)
}

// Descriptor returns the operating point of core. The observed
// utilization covers the interval since the previous Descriptor of the
// core.
func (s *Sensor) Descriptor(ctx context.Context, core int) (governor.Descriptor,
	error) {
	if err := ctx.Err(); err != nil {
		return governor.Descriptor{}, err
	}

	stat, err := s.cpufreq(core)
	if err != nil {
		return governor.Descriptor{}, err
	}
	d, err := descriptor(core, stat)
	if err != nil {
		return governor.Descriptor{}, err
	}

	if d.ObservedUtilization, _, err = s.load(core, s.prevTrigger); err != nil {
		return governor.Descriptor{}, err
	}
	return d, nil
}

// descriptor returns the frequencies of a core in kHz
func descriptor(core int, stat sysfs.SystemCPUCpufreqStats) (
	governor.Descriptor, error) {
	cur := first(stat.ScalingCurrentFrequency, stat.CpuinfoCurrentFrequency)
	min := first(stat.ScalingMinimumFrequency, stat.CpuinfoMinimumFrequency)
	max := first(stat.ScalingMaximumFrequency, stat.CpuinfoMaximumFrequency)
	if cur == nil || min == nil || max == nil {
		return governor.Descriptor{}, fmt.Errorf("cpufreq: incomplete "+
			"frequency information for cpu%d", core)
	}

	return governor.Descriptor{
		Core:             core,
		CurrentFrequency: int(*cur),
		MinFrequency:     int(*min),
		MaxFrequency:     int(*max),
	}, nil
}

func busy(c procfs.CPUStat) (total, idle float64) {
	idle = c.Idle + c.Iowait
	total = idle + c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	return total, idle
}

// cpuLoad returns the fraction of time between two samples spent busy
// and spent waiting on I/O
func cpuLoad(prev, cur procfs.CPUStat) (util, iowait float64) {
	prevTotal, prevIdle := busy(prev)
	curTotal, curIdle := busy(cur)

	total := curTotal - prevTotal
	if total <= 0 {
		return 0, 0
	}
	util = 1 - (curIdle-prevIdle)/total
	iowait = (cur.Iowait - prev.Iowait) / total
	return floatutils.Clip(util, 0, 1), floatutils.Clip(iowait, 0, 1)
}

// frequencyOffset returns (cur - min) / (max - min) of the scaling
// frequencies, falling back to the cpuinfo values
func frequencyOffset(stat sysfs.SystemCPUCpufreqStats) (float64, error) {
	core, _ := strconv.Atoi(stat.Name)
	d, err := descriptor(core, stat)
	if err != nil {
		return 0, err
	}
	return d.FrequencyOffset(), nil
}

func first(values ...*uint64) *uint64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// temperature returns the hottest thermal zone in units of 100°C
func temperature(zones []sysfs.ClassThermalZoneStats) float64 {
	var hottest int64
	for _, zone := range zones {
		if zone.Temp > hottest {
			hottest = zone.Temp
		}
	}
	// Zone temperatures are in millidegrees Celsius
	return floatutils.Clip(float64(hottest)/100000, 0, 1)
}

// memoryPressure returns the fraction of memory which is not available
func memoryPressure(mem procfs.Meminfo) float64 {
	if mem.MemTotal == nil || mem.MemAvailable == nil || *mem.MemTotal == 0 {
		return 0
	}
	used := 1 - float64(*mem.MemAvailable)/float64(*mem.MemTotal)
	return floatutils.Clip(used, 0, 1)
}
