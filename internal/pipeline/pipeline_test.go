package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/baseline"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/scorer"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/staging"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/transport"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

type fakeModel struct{ score float64 }

func (m fakeModel) Features() []string { return baseline.DefaultFeatures }

func (m fakeModel) Score([]float64) (float64, bool) { return m.score, m.score < 0 }

type panicScorer struct{}

func (panicScorer) ScoreReading(context.Context, domain.RawReading) (domain.AnomalyResult, error) {
	panic("boom")
}

type recorder struct {
	mu     sync.Mutex
	states []twin.State
}

func (r *recorder) Publish(_ context.Context, s twin.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

type fixture struct {
	slot *staging.FileSlot
	twin *twin.Twin
	out  *recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tw, err := twin.New(twin.DefaultPolicy())
	require.NoError(t, err)
	return fixture{
		slot: staging.NewFileSlot(afero.NewMemMapFs(), "data/live.json", 200),
		twin: tw,
		out:  &recorder{},
	}
}

func (f fixture) loop(model baseline.Model) *Loop {
	s := scorer.New(scorer.NewStatic(model), baseline.DefaultCalibration())
	return New(f.slot, s, f.twin, f.out, time.Millisecond)
}

func (f fixture) stage(t *testing.T) {
	t.Helper()
	ax := make([]float64, 128)
	for i := range ax {
		ax[i] = float64(i%8) * 0.01
	}
	require.NoError(t, f.slot.Write(context.Background(), domain.RawReading{AX: ax}))
}

func TestCycleWithoutReadingIsSkipped(t *testing.T) {
	f := newFixture(t)
	l := f.loop(fakeModel{score: -0.2})

	_, err := l.RunCycle(context.Background())
	assert.ErrorIs(t, err, staging.ErrNoReading)
	assert.Zero(t, f.out.count())
	assert.Equal(t, 100, f.twin.Snapshot().OverallHealth)
	assert.Equal(t, int64(1), l.Stats().Skipped)
}

func TestCycleDamagesTwin(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	l := f.loop(fakeModel{score: -0.2})

	s, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 93, s.OverallHealth)
	assert.NotEmpty(t, s.Cycle)
	require.NotNil(t, s.Model)
	assert.Equal(t, domain.StatusCritical, s.Model.Status)

	require.Equal(t, 1, f.out.count())
	assert.Equal(t, s, f.out.states[0])
	assert.Equal(t, s, f.twin.Snapshot())
}

func TestCycleWithoutModelKeepsHealth(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	l := f.loop(nil)

	s, err := l.RunCycle(context.Background())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, 100, s.OverallHealth)
	assert.Equal(t, domain.DetailsModelUnavailable, s.Model.Details)
	assert.Equal(t, domain.StatusOK, s.Model.Status)
	assert.Equal(t, 1, f.out.count())
	assert.Equal(t, int64(1), l.Stats().Degraded)
}

func TestCycleWithMalformedReadingIsNeutral(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.slot.Write(context.Background(), domain.RawReading{AX: []float64{1, 2}, AY: []float64{1}, AZ: []float64{1}}))
	l := f.loop(fakeModel{score: -0.2})

	s, err := l.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
	assert.Equal(t, 100, s.OverallHealth)
	assert.Equal(t, domain.DetailsInvalidInput, s.Model.Details)
}

func TestCycleWithOverflowingReadingIsNeutral(t *testing.T) {
	f := newFixture(t)
	huge := make([]float64, 128)
	for i := range huge {
		huge[i] = 1e200 * float64(i%4-2)
	}
	require.NoError(t, f.slot.Write(context.Background(), domain.RawReading{AX: huge, AY: huge, AZ: huge}))
	l := f.loop(fakeModel{score: -0.2})

	s, err := l.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
	assert.Equal(t, 100, s.OverallHealth)
	require.NotNil(t, s.Model)
	assert.Equal(t, domain.DetailsInvalidInput, s.Model.Details)
	assert.False(t, s.Model.IsAnomaly)

	require.Equal(t, 1, f.out.count())
	_, err = json.Marshal(f.out.states[0])
	assert.NoError(t, err)
}

func TestCycleRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	l := New(f.slot, panicScorer{}, f.twin, f.out, time.Millisecond)

	_, err := l.RunCycle(context.Background())
	require.ErrorContains(t, err, "panicked")
	assert.Equal(t, int64(1), l.Stats().Panics)
	assert.Equal(t, 100, f.twin.Snapshot().OverallHealth)
}

func TestTransportFailureDoesNotFailCycle(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	fan := transport.NewFanout().Add("down", transport.PublisherFunc(func(context.Context, twin.State) error {
		return errors.New("unreachable")
	}))
	s := scorer.New(scorer.NewStatic(fakeModel{score: 0.2}), baseline.DefaultCalibration())
	l := New(f.slot, s, f.twin, fan, time.Millisecond)

	state, err := l.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, state.OverallHealth)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	l := f.loop(fakeModel{score: 0.2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return f.out.count() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.GreaterOrEqual(t, l.Stats().Cycles, int64(3))
}

func TestRunSurvivesFailingCycles(t *testing.T) {
	f := newFixture(t)
	f.stage(t)
	l := New(f.slot, panicScorer{}, f.twin, f.out, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Stats().Panics >= 3 }, 5*time.Second, time.Millisecond)
}
