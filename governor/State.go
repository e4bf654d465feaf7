package governor

import (
	"fmt"

	"github.com/samuelfneumann/rlgov/timestep"
	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Discretize maps a normalized frequency offset in [0, 1] to one of
// bins table rows. An offset of exactly 1 falls in the last bin.
func Discretize(offset float64, bins int) int {
	bin := int(floatutils.Clip(offset, 0, 1) * float64(bins))
	if bin >= bins {
		bin = bins - 1
	}
	return bin
}

// NewState builds the State of a core from sensed features. Each
// feature is clamped to [0, 1] and the bin is derived from the
// frequency offset feature.
func NewState(features []float64, bins int) (timestep.State, error) {
	if len(features) != timestep.StateDim {
		return timestep.State{}, fmt.Errorf("governor: expected %d features, "+
			"got %d", timestep.StateDim, len(features))
	}
	if !floatutils.AllFinite(features) {
		return timestep.State{}, fmt.Errorf("governor: non-finite features "+
			"%v", features)
	}

	clamped := make([]float64, len(features))
	for i, f := range features {
		clamped[i] = floatutils.Clip(f, 0, 1)
	}
	return timestep.State{
		Features: clamped,
		Bin:      Discretize(clamped[timestep.Frequency], bins),
	}, nil
}

// NeutralState returns the State used when a core's sensors are
// unavailable. Only utilization and frequency offset are known, from
// the trigger's Descriptor; every other feature is 0.
func NeutralState(d Descriptor, bins int) timestep.State {
	features := make([]float64, timestep.StateDim)
	features[timestep.Utilization] = floatutils.Clip(d.ObservedUtilization,
		0, 1)
	if !floatutils.IsFinite(features[timestep.Utilization]) {
		features[timestep.Utilization] = 0
	}
	features[timestep.Frequency] = d.FrequencyOffset()

	return timestep.State{
		Features: features,
		Bin:      Discretize(features[timestep.Frequency], bins),
	}
}
