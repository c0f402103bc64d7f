package fit

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

func lineStore(t *testing.T, a, b float64) *params.Store {
	t.Helper()
	st := params.NewStore()
	require.NoError(t, st.Declare("m.a", a, params.Unbounded(), true))
	require.NoError(t, st.Declare("m.b", b, params.Unbounded(), true))
	return st
}

func lineModel(xs []float64) func(*params.Store) ([]float64, error) {
	return func(st *params.Store) ([]float64, error) {
		a, err := st.Get("m.a")
		if err != nil {
			return nil, err
		}
		b, err := st.Get("m.b")
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = a*x + b
		}
		return out, nil
	}
}

func noisyLine() Target {
	xs := make([]float64, 20)
	obs := make([]float64, 20)
	sig := make([]float64, 20)
	for i := range xs {
		xs[i] = float64(i)
		obs[i] = 2*xs[i] + 1 + 0.1*math.Pow(-1, float64(i))
		sig[i] = 1
	}
	return Target{ID: "line", Observed: obs, Sigma: sig, Simulate: lineModel(xs)}
}

func drain(ch <-chan Progress) []Progress {
	var out []Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestLevenbergMarquardtFitsLine(t *testing.T) {
	st := lineStore(t, 1, 0)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return fixed }))

	ch, err := e.Start(context.Background(), Problem{Store: st, Targets: []Target{noisyLine()}})
	require.NoError(t, err)
	updates := drain(ch)
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	require.True(t, last.Final)
	require.Equal(t, Converged, last.State)
	require.Equal(t, Converged, e.State())

	s := last.Summary
	require.NotNil(t, s)
	require.True(t, s.Success)
	require.Equal(t, MethodLM, s.Method)
	require.Equal(t, 20, s.NPoints)
	require.Equal(t, 2, s.NVarys)
	require.Equal(t, fixed, s.FinishedAt)
	require.InDelta(t, s.ChiSquare/18, s.ReducedChiSquare, 1e-12)
	require.InDelta(t, math.Sqrt(s.ReducedChiSquare), s.GoodnessOfFit, 1e-12)
	require.Greater(t, s.Uncertainties["m.a"], 0.0)
	require.Greater(t, s.Uncertainties["m.b"], 0.0)
	require.NotEmpty(t, s.RunID)

	a, _ := st.Value("m.a")
	b, _ := st.Value("m.b")
	require.InDelta(t, 2, a, 0.05)
	require.InDelta(t, 1, b, 0.1)

	got, ok := e.Summary()
	require.True(t, ok)
	require.Equal(t, *s, got)
}

func TestNelderMeadReducesChiSquare(t *testing.T) {
	st := lineStore(t, 1, 0)
	e := NewEngine()
	ch, err := e.Start(context.Background(), Problem{
		Store:   st,
		Targets: []Target{noisyLine()},
		Config:  domain.FitConfig{Method: MethodNelderMead, Patience: 20, MaxIterations: 500},
	})
	require.NoError(t, err)
	updates := drain(ch)
	last := updates[len(updates)-1]
	require.Contains(t, []State{Converged, MaxIterationsReached}, last.State)
	require.Less(t, last.Summary.ChiSquare, 2870.0/10)
}

func TestStartValidation(t *testing.T) {
	e := NewEngine()

	fixed := params.NewStore()
	require.NoError(t, fixed.Declare("m.a", 1, params.Unbounded(), false))
	_, err := e.Start(context.Background(), Problem{Store: fixed, Targets: []Target{noisyLine()}})
	require.ErrorIs(t, err, domain.ErrNoFreeParameters)

	st := lineStore(t, 1, 0)
	_, err = e.Start(context.Background(), Problem{Store: st})
	require.ErrorIs(t, err, domain.ErrNoData)

	zero := noisyLine()
	zero.Sigma[3] = 0
	_, err = e.Start(context.Background(), Problem{Store: st, Targets: []Target{zero}})
	require.ErrorIs(t, err, domain.ErrNoData)

	_, err = e.Start(context.Background(), Problem{Store: st, Targets: []Target{noisyLine()}, Config: domain.FitConfig{Method: "simplex"}})
	require.ErrorIs(t, err, domain.ErrMalformedData)

	require.Equal(t, Idle, e.State())
}

func TestCancelStopsRunningFit(t *testing.T) {
	st := lineStore(t, 1, 0)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	target := noisyLine()
	model := target.Simulate
	target.Simulate = func(s *params.Store) ([]float64, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return model(s)
	}

	e := NewEngine()
	ch, err := e.Start(context.Background(), Problem{Store: st, Targets: []Target{target}})
	require.NoError(t, err)
	<-started
	require.True(t, e.Running())

	_, err = e.Start(context.Background(), Problem{Store: st, Targets: []Target{noisyLine()}})
	require.ErrorIs(t, err, domain.ErrFitAlreadyRunning)

	e.Cancel()
	e.Cancel()
	close(release)

	updates := drain(ch)
	last := updates[len(updates)-1]
	require.True(t, last.Final)
	require.Equal(t, Cancelled, last.State)
	require.False(t, last.Summary.Success)
	require.Equal(t, Cancelled, e.State())

	a, _ := st.Value("m.a")
	require.Equal(t, 1.0, a)

	e.Cancel()
	require.Equal(t, Cancelled, e.State())
}

func TestNonFiniteModelFailsWithChangedIDs(t *testing.T) {
	st := lineStore(t, 1, 0)
	target := noisyLine()
	model := target.Simulate
	target.Simulate = func(s *params.Store) ([]float64, error) {
		y, err := model(s)
		if a, _ := s.Value("m.a"); a != 1 {
			y[0] = math.NaN()
		}
		return y, err
	}

	e := NewEngine()
	ch, err := e.Start(context.Background(), Problem{Store: st, Targets: []Target{target}})
	require.NoError(t, err)
	updates := drain(ch)
	last := updates[len(updates)-1]
	require.Equal(t, Failed, last.State)
	require.Contains(t, last.Summary.LastChanged, "m.a")

	a, _ := st.Value("m.a")
	require.Equal(t, 1.0, a)
}

func TestFinalUpdateSurvivesFullBuffer(t *testing.T) {
	st := lineStore(t, 1, 0)
	e := NewEngine(WithProgressBuffer(1))
	ch, err := e.Start(context.Background(), Problem{Store: st, Targets: []Target{noisyLine()}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	summary, err := e.Wait(ctx)
	require.NoError(t, err)

	updates := drain(ch)
	require.Len(t, updates, 1)
	require.True(t, updates[0].Final)
	require.Equal(t, summary.RunID, updates[0].RunID)
}

func TestEngineRestartsAfterTerminalState(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 2; i++ {
		st := lineStore(t, 1, 0)
		ch, err := e.Start(context.Background(), Problem{RunID: "run", Store: st, Targets: []Target{noisyLine()}})
		require.NoError(t, err)
		drain(ch)
		require.True(t, e.State().Terminal())
	}
}
