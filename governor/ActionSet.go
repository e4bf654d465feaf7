package governor

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/rlgov/utils/floatutils"
)

// Frequency steps of the actions, in kHz
const (
	SmallStep = 100000
	LargeStep = 300000
)

// ActionSet maps action indices to frequency deltas. The size of an
// ActionSet is fixed at construction.
type ActionSet struct {
	deltas []int
	names  []string
}

// ThreeActions returns the reduced action set
// {increase, decrease, maintain}
func ThreeActions() ActionSet {
	return ActionSet{
		deltas: []int{SmallStep, -SmallStep, 0},
		names:  []string{"increase", "decrease", "maintain"},
	}
}

// FiveActions returns the action set {large-decrease, small-decrease,
// maintain, small-increase, large-increase}
func FiveActions() ActionSet {
	return ActionSet{
		deltas: []int{-LargeStep, -SmallStep, 0, SmallStep, LargeStep},
		names: []string{"large-decrease", "small-decrease", "maintain",
			"small-increase", "large-increase"},
	}
}

// NewActionSet returns the ActionSet with n actions. Only 3 and 5 are
// supported.
func NewActionSet(n int) (ActionSet, error) {
	switch n {
	case 3:
		return ThreeActions(), nil
	case 5:
		return FiveActions(), nil
	default:
		return ActionSet{}, fmt.Errorf("governor: unsupported number of "+
			"actions %d, want 3 or 5", n)
	}
}

// Len returns the number of actions
func (a ActionSet) Len() int {
	return len(a.deltas)
}

// Delta returns the frequency delta of action
func (a ActionSet) Delta(action int) int {
	return a.deltas[action]
}

// Name returns the name of action
func (a ActionSet) Name(action int) string {
	if action < 0 || action >= a.Len() {
		return fmt.Sprintf("action(%d)", action)
	}
	return a.names[action]
}

// Target returns the current frequency of d moved by the delta of
// action, clamped to the frequency range of d
func (a ActionSet) Target(action int, d Descriptor) int {
	target := float64(d.CurrentFrequency + a.Delta(action))
	return int(math.Round(floatutils.ClipInterval(target, d.Interval())))
}
