package trackers

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/rlgov/experiment/tracker"
	"github.com/samuelfneumann/rlgov/governor"
)

func learned(core int, reward float64) governor.Result {
	return governor.Result{Core: core, Reward: reward, Learned: true,
		Outcome: governor.OutcomeLearned}
}

func TestReturn(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "return"))

	r.Track(learned(0, -0.5))
	r.Track(learned(1, -0.25))
	r.Track(governor.Result{Core: 1, Reward: -10,
		Outcome: governor.OutcomeActuationFailed})
	r.Track(learned(0, -0.25))

	assert.Equal(t, -0.75, r.Return(0))
	assert.Equal(t, -0.25, r.Return(1))
	assert.Equal(t, -1.0, r.Total())
	assert.Empty(t, cmp.Diff([]int{0, 1}, r.Cores()))

	require.NoError(t, r.Save())
	curve, err := tracker.LoadData(r.Filename())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]float64{-0.5, -0.75, -1}, curve))
}

func TestRegisteredReturn(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "return"))
	registered := tracker.Register(r, 1)

	registered.Track(learned(0, -0.5))
	registered.Track(learned(1, -0.25))

	assert.Equal(t, -0.25, r.Total())
	assert.Empty(t, cmp.Diff([]int{1}, r.Cores()))
	require.NoError(t, registered.Save())
}

func TestOutcomes(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "outcomes")
	o := NewOutcomes(filename)

	o.Track(learned(0, 0))
	o.Track(learned(1, 0))
	o.Track(governor.Result{Outcome: governor.OutcomeSensorFailed})

	want := map[governor.Outcome]int{
		governor.OutcomeLearned:      2,
		governor.OutcomeSensorFailed: 1,
	}
	assert.Empty(t, cmp.Diff(want, o.Counts()))
	assert.Equal(t, 0, o.Count(governor.OutcomeCancelled))

	require.NoError(t, o.Save())
	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()

	var saved map[governor.Outcome]int
	require.NoError(t, gob.NewDecoder(file).Decode(&saved))
	assert.Empty(t, cmp.Diff(want, saved))
}

func TestLoadDataMissing(t *testing.T) {
	_, err := tracker.LoadData(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSaveUnwritable(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "missing", "return"))
	assert.Error(t, r.Save())
}
