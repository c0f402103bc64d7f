package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"diffractcore/internal/lattice"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

func grid(lo, hi, step float64) []float64 {
	var out []float64
	for i := 0; ; i++ {
		x := lo + float64(i)*step
		if x > hi+1e-9 {
			return out
		}
		out = append(out, x)
	}
}

func cubicPhase(t *testing.T, symbol string, a float64, sites ...symmetry.Site) PhaseInput {
	t.Helper()
	g, err := symmetry.Lookup(symbol, "")
	require.NoError(t, err)
	return PhaseInput{
		ID:    "ph",
		Scale: 1,
		Cell:  lattice.Cell{A: a, B: a, C: a, Alpha: 90, Beta: 90, Gamma: 90},
		Sites: symmetry.Expand(g.Operations(), sites, symmetry.DefaultTolerance),
	}
}

func baseInput(phases ...PhaseInput) Input {
	return Input{
		Wavelength: 1.912,
		Scale:      1,
		U:          0.1447,
		V:          -0.4252,
		W:          0.3864,
		Grid:       grid(10, 120, 0.05),
		Phases:     phases,
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	g, err := symmetry.Lookup("P 42/n c m", "")
	require.NoError(t, err)
	beta := [6]float64{0.002, 0.003, 0.004, 0.0005, 0, 0}
	sites := symmetry.Expand(g.Operations(), []symmetry.Site{
		{Label: "Cl1", Specie: "Cl", Frac: [3]float64{0.125, 0.167, 0.107}, Occupancy: 1, Uiso: 0.01},
		{Label: "O1", Specie: "O2-", Frac: [3]float64{0.3, 0.1, 0.4}, Occupancy: 0.7, Beta: &beta},
	}, symmetry.DefaultTolerance)
	in := baseInput(PhaseInput{ID: "d", Scale: 2, Cell: lattice.Cell{A: 8.56, B: 8.56, C: 6.12, Alpha: 90, Beta: 90, Gamma: 90}, Sites: sites})
	in.BackgroundX, in.BackgroundY = []float64{10, 120}, []float64{5, 8}
	in.ZeroShift, in.X, in.Y = 0.1, 0.02, 0.01

	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.NotEmpty(t, first.Reflections)
}

func TestSimpleCubicFirstReflection(t *testing.T) {
	ph := cubicPhase(t, "P m -3 m", 4, symmetry.Site{Label: "O1", Specie: "O", Occupancy: 1})
	p, err := Calculate(baseInput(ph))
	require.NoError(t, err)
	require.NotEmpty(t, p.Reflections)

	r := p.Reflections[0]
	require.Equal(t, [3]int{-1, 0, 0}, r.HKL)
	require.Equal(t, 6, r.Multiplicity)
	require.InDelta(t, 4, r.D, 1e-12)
	require.InDelta(t, 2*math.Asin(1.912/8)*180/math.Pi, r.TwoTheta, 1e-9)
	require.InDelta(t, 5.803*5.803, r.F2, 1e-9)

	theta := r.TwoTheta / 2 * math.Pi / 180
	lorentz := 1 / (math.Sin(theta) * math.Sin(theta) * math.Cos(theta))
	require.InDelta(t, 6*5.803*5.803*lorentz, r.Intensity, 1e-6)
}

func TestBodyCenteredAbsences(t *testing.T) {
	ph := cubicPhase(t, "I m -3 m", 3.2, symmetry.Site{Label: "Fe1", Specie: "Fe", Occupancy: 1})
	p, err := Calculate(baseInput(ph))
	require.NoError(t, err)
	for _, r := range p.Reflections {
		require.Zero(t, (r.HKL[0]+r.HKL[1]+r.HKL[2])%2, "reflection %v violates I centering", r.HKL)
	}
	require.Equal(t, 12, p.Reflections[0].Multiplicity)
	require.InDelta(t, 4*9.45*9.45, p.Reflections[0].F2, 1e-9)
}

func TestZeroShiftMovesPeaks(t *testing.T) {
	ph := cubicPhase(t, "P m -3 m", 4, symmetry.Site{Label: "O1", Specie: "O", Occupancy: 1})
	in := baseInput(ph)
	ref, err := Calculate(in)
	require.NoError(t, err)
	in.ZeroShift = 0.5
	shifted, err := Calculate(in)
	require.NoError(t, err)
	require.InDelta(t, ref.Reflections[0].TwoTheta+0.5, shifted.Reflections[0].TwoTheta, 1e-12)
	require.InDelta(t, ref.Reflections[0].FWHM, shifted.Reflections[0].FWHM, 1e-12)
}

func TestTotalIsBackgroundPlusPhases(t *testing.T) {
	a := cubicPhase(t, "P m -3 m", 4, symmetry.Site{Label: "O1", Specie: "O", Occupancy: 1})
	b := cubicPhase(t, "F m -3 m", 5.6, symmetry.Site{Label: "Na", Specie: "Na", Occupancy: 1}, symmetry.Site{Label: "Cl", Specie: "Cl", Frac: [3]float64{0.5, 0.5, 0.5}, Occupancy: 1})
	in := baseInput(a, b)
	in.BackgroundX, in.BackgroundY = []float64{20, 100}, []float64{10, 30}
	p, err := Calculate(in)
	require.NoError(t, err)
	require.Len(t, p.PerPhase, 2)
	for i := range p.X {
		require.InDelta(t, p.Background[i]+p.PerPhase[0][i]+p.PerPhase[1][i], p.Total[i], 1e-9*math.Max(1, p.Total[i]))
	}
}

func TestCalculateErrors(t *testing.T) {
	ph := cubicPhase(t, "P m -3 m", 4, symmetry.Site{Label: "O1", Specie: "O", Occupancy: 1})

	in := baseInput(ph)
	in.Grid = nil
	_, err := Calculate(in)
	require.ErrorIs(t, err, domain.ErrNoData)

	bad := ph
	bad.Sites = []symmetry.Site{{Label: "X", Specie: "Xx", Occupancy: 1}}
	_, err = Calculate(baseInput(bad))
	require.ErrorIs(t, err, domain.ErrUnknownID)

	flat := ph
	flat.Cell = lattice.Cell{A: 4, B: 4, C: 4, Alpha: 150, Beta: 150, Gamma: 150}
	_, err = Calculate(baseInput(flat))
	require.ErrorIs(t, err, domain.ErrNonFiniteOutput)
}

func TestNonPhysicalWidthsStayFinite(t *testing.T) {
	ph := cubicPhase(t, "P m -3 m", 4, symmetry.Site{Label: "O1", Specie: "O", Occupancy: 1})
	in := baseInput(ph)
	in.U, in.V, in.W = 0, 0, -5
	p, err := Calculate(in)
	require.NoError(t, err)
	for _, v := range p.Total {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestBackgroundInterpolation(t *testing.T) {
	out := Background([]float64{0, 10, 15, 20, 30}, []float64{10, 20}, []float64{1, 3})
	require.Equal(t, []float64{1, 1, 2, 3, 3}, out)
	require.Equal(t, []float64{0, 0}, Background([]float64{1, 2}, nil, nil))
}

func TestProfileShape(t *testing.T) {
	require.InDelta(t, 0.3, tchWidth(0.3, 0), 1e-12)
	require.InDelta(t, 0.2, tchWidth(0, 0.2), 1e-12)
	require.Zero(t, mixing(Input{W: 0.09}, 40))
	require.InDelta(t, 1, mixing(Input{W: -1, Y: 5}, 40), 1e-4)

	for _, eta := range []float64{0, 0.5, 1} {
		var area float64
		step := 0.001
		for x := -200.0; x <= 200; x += step {
			area += PseudoVoigt(x, 0.4, eta) * step
		}
		require.InDelta(t, 1, area, 0.01, "eta=%v", eta)
	}
}
