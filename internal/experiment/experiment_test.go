package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

func TestNewDeclaresDefaults(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "d1a", "")
	require.NoError(t, err)
	require.Equal(t, DefaultName, e.Name)

	inst, err := e.Instrument(store)
	require.NoError(t, err)
	require.Equal(t, Instrument{Wavelength: 1.912, Scale: 100, U: 0.1447, V: -0.4252, W: 0.3864}, inst)
	require.Equal(t, 8, store.Len())

	_, err = New(store, "d1a", "again")
	require.ErrorIs(t, err, domain.ErrDuplicateID)
	require.Equal(t, 8, store.Len())
	_, err = New(store, "bad id", "")
	require.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestImportMeasured(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "x", "")
	require.NoError(t, err)

	pts := []domain.MeasuredPoint{{X: 10, Y: 1, Sigma: 1}, {X: 10, Y: 2, Sigma: 1}, {X: 12, Y: 3, Sigma: 0}}
	require.NoError(t, e.ImportMeasured(pts))
	require.True(t, e.HasData())
	require.Equal(t, []float64{10, 10, 12}, e.Grid())
	require.Equal(t, domain.SimulationRange{Min: 10, Max: 12, Step: 1}, e.Range)

	cases := map[string][]domain.MeasuredPoint{
		"decreasing": {{X: 2, Y: 1, Sigma: 1}, {X: 1, Y: 1, Sigma: 1}},
		"nan":        {{X: 1, Y: math.NaN(), Sigma: 1}},
		"inf sigma":  {{X: 1, Y: 1, Sigma: math.Inf(1)}},
		"negative":   {{X: 1, Y: 1, Sigma: -1}},
		"empty":      nil,
	}
	for name, bad := range cases {
		err := e.ImportMeasured(bad)
		require.ErrorIs(t, err, domain.ErrMalformedData, name)
	}
	require.Len(t, e.Points, 3)
}

func TestSimulationGrid(t *testing.T) {
	e := &Experiment{Range: domain.SimulationRange{Min: 10, Max: 11, Step: 0.25}}
	require.Equal(t, []float64{10, 10.25, 10.5, 10.75, 11}, e.Grid())
	require.Error(t, e.SetRange(domain.SimulationRange{Min: 1, Max: 0, Step: 1}))
	require.Error(t, e.SetRange(domain.SimulationRange{Min: 0, Max: 1, Step: 0}))
	require.Len(t, (&Experiment{Range: DefaultRange}).Grid(), 1401)
}

func TestSetRangeRejectsOversizedGrids(t *testing.T) {
	e := &Experiment{ID: "d1a", Range: DefaultRange}
	for _, r := range []domain.SimulationRange{
		{Min: 10, Max: 150, Step: 1e-300},
		{Min: 10, Max: 150, Step: 140.0 / MaxGridPoints},
		{Min: 0, Max: 1e308, Step: 1},
	} {
		err := e.SetRange(r)
		require.ErrorIs(t, err, domain.ErrMalformedData, "%v", r)
	}
	require.Equal(t, DefaultRange, e.Range)

	largest := domain.SimulationRange{Min: 0, Max: MaxGridPoints - 1, Step: 1}
	require.NoError(t, e.SetRange(largest))
	require.Len(t, e.Grid(), MaxGridPoints)

	require.Nil(t, (&Experiment{Range: domain.SimulationRange{Min: 10, Max: 150, Step: 1e-300}}).Grid())
}

func TestFromRecordValidatesRange(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "x", "")
	require.NoError(t, err)
	rec := e.Record()
	rec.Range = domain.SimulationRange{Min: 10, Max: 150, Step: 1e-300}
	_, err = FromRecord(rec, store)
	require.ErrorIs(t, err, domain.ErrMalformedData)
}

func TestBackgroundPoints(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "x", "")
	require.NoError(t, err)

	_, err = e.AddBackgroundPoint(store, 100, 20)
	require.NoError(t, err)
	id, err := e.AddBackgroundPoint(store, 10, 5)
	require.NoError(t, err)
	_, err = e.AddBackgroundPoint(store, 10, 6)
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	xs, ys, err := e.BackgroundValues(store)
	require.NoError(t, err)
	require.Equal(t, []float64{10, 100}, xs)
	require.Equal(t, []float64{5, 20}, ys)

	require.NoError(t, e.RemoveBackgroundPoint(store, 100))
	require.ErrorIs(t, e.RemoveBackgroundPoint(store, 100), domain.ErrUnknownID)
	again, err := e.AddBackgroundPoint(store, 50, 1)
	require.NoError(t, err)
	require.NotEqual(t, id, again)
}

func TestPhaseLinks(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "x", "")
	require.NoError(t, err)
	require.NoError(t, e.LinkPhase(store, "pbso4"))
	require.True(t, e.Linked("pbso4"))
	require.ErrorIs(t, e.LinkPhase(store, "pbso4"), domain.ErrDuplicateID)

	scale, err := store.Get(ParamID("x", "phases.pbso4.scale"))
	require.NoError(t, err)
	require.Equal(t, 1.0, scale)

	require.NoError(t, e.UnlinkPhase(store, "pbso4"))
	require.False(t, store.Has(ParamID("x", "phases.pbso4.scale")))
	require.ErrorIs(t, e.UnlinkPhase(store, "pbso4"), domain.ErrUnknownID)
}

func TestRecordRoundTrip(t *testing.T) {
	store := params.NewStore()
	e, err := New(store, "x", "run")
	require.NoError(t, err)
	require.NoError(t, e.LinkPhase(store, "p"))
	_, err = e.AddBackgroundPoint(store, 20, 3)
	require.NoError(t, err)
	require.NoError(t, e.ImportMeasured([]domain.MeasuredPoint{{X: 1, Y: 2, Sigma: 1}, {X: 2, Y: 3, Sigma: 1}}))

	rec := e.Record()
	back, err := FromRecord(rec, store)
	require.NoError(t, err)
	require.Equal(t, rec, back.Record())

	_, err = FromRecord(rec, params.NewStore())
	require.ErrorIs(t, err, domain.ErrUnknownID)
}
