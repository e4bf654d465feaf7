package governor

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Descriptor is supplied by the periodic trigger on every tick and
// describes the current operating point of a core. Frequencies are in
// kHz.
type Descriptor struct {
	Core                int
	CurrentFrequency    int
	MinFrequency        int
	MaxFrequency        int
	ObservedUtilization float64
}

// Validate ensures the frequency bounds are usable
func (d Descriptor) Validate() error {
	if d.Core < 0 {
		return fmt.Errorf("governor: negative core %d", d.Core)
	}
	if d.MinFrequency < 0 || d.MinFrequency > d.MaxFrequency {
		return fmt.Errorf("governor: invalid frequency range [%d, %d]",
			d.MinFrequency, d.MaxFrequency)
	}
	return nil
}

// Interval returns the frequency range of the core
func (d Descriptor) Interval() r1.Interval {
	return r1.Interval{
		Min: float64(d.MinFrequency),
		Max: float64(d.MaxFrequency),
	}
}

// FrequencyOffset returns (cur - min) / (max - min) clamped to [0, 1].
// A core with a single frequency has offset 0.
func (d Descriptor) FrequencyOffset() float64 {
	return frequencyOffset(d.CurrentFrequency, d.MinFrequency, d.MaxFrequency)
}

func frequencyOffset(cur, min, max int) float64 {
	if max <= min {
		return 0
	}
	offset := float64(cur-min) / float64(max-min)
	return floatutils.Clip(offset, 0, 1)
}
