package cpufreq

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/governor"
)

func uint64p(v uint64) *uint64 {
	return &v
}

func TestCPULoad(t *testing.T) {
	prev := procfs.CPUStat{User: 10, System: 5, Idle: 80, Iowait: 5}
	cur := procfs.CPUStat{User: 40, System: 15, Idle: 130, Iowait: 15}

	// 100 jiffies elapsed: 40 busy, 10 waiting on I/O
	util, iowait := cpuLoad(prev, cur)
	assert.InDelta(t, 0.4, util, 1e-12)
	assert.InDelta(t, 0.1, iowait, 1e-12)

	util, iowait = cpuLoad(cur, cur)
	assert.Equal(t, 0.0, util)
	assert.Equal(t, 0.0, iowait)
}

func TestFrequencyOffset(t *testing.T) {
	stat := sysfs.SystemCPUCpufreqStats{
		Name:                    "0",
		ScalingCurrentFrequency: uint64p(1400000),
		ScalingMinimumFrequency: uint64p(800000),
		ScalingMaximumFrequency: uint64p(2000000),
	}
	offset, err := frequencyOffset(stat)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, offset, 1e-12)

	// Falls back to cpuinfo
	stat.ScalingCurrentFrequency = nil
	stat.CpuinfoCurrentFrequency = uint64p(2000000)
	offset, err = frequencyOffset(stat)
	require.NoError(t, err)
	assert.Equal(t, 1.0, offset)

	stat.CpuinfoCurrentFrequency = nil
	_, err = frequencyOffset(stat)
	assert.Error(t, err)
}

func TestDescriptorFrequencies(t *testing.T) {
	d, err := descriptor(2, sysfs.SystemCPUCpufreqStats{
		Name:                    "2",
		ScalingCurrentFrequency: uint64p(1400000),
		ScalingMinimumFrequency: uint64p(800000),
		CpuinfoMaximumFrequency: uint64p(2000000),
	})
	require.NoError(t, err)
	assert.Equal(t, governor.Descriptor{Core: 2, CurrentFrequency: 1400000,
		MinFrequency: 800000, MaxFrequency: 2000000}, d)
}

func TestTemperature(t *testing.T) {
	zones := []sysfs.ClassThermalZoneStats{{Temp: 45000}, {Temp: 62000}}
	assert.InDelta(t, 0.62, temperature(zones), 1e-12)
	assert.Equal(t, 1.0, temperature([]sysfs.ClassThermalZoneStats{
		{Temp: 120000}}))
	assert.Equal(t, 0.0, temperature(nil))
}

func TestMemoryPressure(t *testing.T) {
	mem := procfs.Meminfo{MemTotal: uint64p(1000), MemAvailable: uint64p(250)}
	assert.InDelta(t, 0.75, memoryPressure(mem), 1e-12)
	assert.Equal(t, 0.0, memoryPressure(procfs.Meminfo{}))
}

func TestSensorLoadFromProcfs(t *testing.T) {
	proc := t.TempDir()
	write(t, filepath.Join(proc, "stat"), "cpu  100 0 50 800 50 0 0 0 0 0\n"+
		"cpu0 100 0 50 800 50 0 0 0 0 0\n")

	s, err := NewSensor(proc, t.TempDir(), logr.Discard())
	require.NoError(t, err)

	// busy = 150 of 1000 jiffies, iowait = 50 of 1000
	util, iowait, err := s.load(0, s.prev)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, util, 1e-9)
	assert.InDelta(t, 0.05, iowait, 1e-9)

	// The trigger's interval is tracked separately
	util, _, err = s.load(0, s.prevTrigger)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, util, 1e-9)

	// No time has passed since the last sample
	util, _, err = s.load(0, s.prev)
	require.NoError(t, err)
	assert.Equal(t, 0.0, util)

	_, _, err = s.load(3, s.prev)
	assert.Error(t, err)
}

// sysfsRoot lays out a single core's cpufreq directory under a temporary
// sysfs root
func sysfsRoot(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "devices", "system", "cpu", "cpu0", "cpufreq")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		write(t, filepath.Join(dir, name), content)
	}
	return root
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestActuator(t *testing.T) {
	root := sysfsRoot(t, map[string]string{
		"scaling_governor":              "userspace\n",
		"scaling_available_frequencies": "2000000 1600000 1200000 800000 \n",
		"scaling_setspeed":              "<unsupported>\n",
		"scaling_cur_freq":              "1600000\n",
	})
	a := NewActuator(root, logr.Discard())
	ctx := context.Background()

	_, err := a.ApplyFrequency(ctx, 0, 1300000, environment.AtLeast)
	assert.Error(t, err, "must be activated first")

	require.NoError(t, a.Activate(ctx, 0))
	achieved, err := a.ApplyFrequency(ctx, 0, 1300000, environment.AtLeast)
	require.NoError(t, err)
	assert.Equal(t, 1600000, achieved)

	written, err := os.ReadFile(filepath.Join(root, "devices", "system", "cpu",
		"cpu0", "cpufreq", "scaling_setspeed"))
	require.NoError(t, err)
	assert.Equal(t, "1600000", string(written))

	_, err = a.ApplyFrequency(ctx, 0, 1300000, environment.Nearest)
	require.NoError(t, err)
	written, err = os.ReadFile(filepath.Join(root, "devices", "system", "cpu",
		"cpu0", "cpufreq", "scaling_setspeed"))
	require.NoError(t, err)
	assert.Equal(t, "1200000", string(written))
}

func TestActuatorFallsBackToCpuinfoBounds(t *testing.T) {
	root := sysfsRoot(t, map[string]string{
		"scaling_governor": "userspace",
		"cpuinfo_min_freq": "800000",
		"cpuinfo_max_freq": "1000000",
	})
	a := NewActuator(root, logr.Discard())
	require.NoError(t, a.Activate(context.Background(), 0))
	assert.Equal(t, []int{800000, 900000, 1000000}, a.available[0])
}

func TestActivateRejectsOtherGovernors(t *testing.T) {
	root := sysfsRoot(t, map[string]string{"scaling_governor": "schedutil"})
	a := NewActuator(root, logr.Discard())
	assert.Error(t, a.Activate(context.Background(), 0))

	// Missing cores fail too
	assert.Error(t, a.Activate(context.Background(), 5))
}

func TestParseFrequencies(t *testing.T) {
	got, err := parseFrequencies("300 100 200")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 300}, got)

	_, err = parseFrequencies("100 fast")
	assert.Error(t, err)
}
