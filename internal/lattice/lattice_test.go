package lattice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCubicGeometry(t *testing.T) {
	c := Cell{A: 5, B: 5, C: 5, Alpha: 90, Beta: 90, Gamma: 90}
	require.InDelta(t, 125, c.Volume(), 1e-9)
	r := c.Reciprocal()
	require.True(t, r.Valid)
	d := 1 / math.Sqrt(r.InvD2([3]float64{1, 1, 1}))
	require.InDelta(t, 5/math.Sqrt(3), d, 1e-12)
}

func TestHexagonalDSpacing(t *testing.T) {
	c := Cell{A: 3, B: 3, C: 5, Alpha: 90, Beta: 90, Gamma: 120}
	r := c.Reciprocal()
	// 1/d² = 4/3 (h²+hk+k²)/a² + l²/c²
	want := 4.0/3.0*(1+1+1)/9 + 4.0/25
	require.InDelta(t, want, r.InvD2([3]float64{1, 1, 2}), 1e-12)
}

func TestDegenerateCell(t *testing.T) {
	c := Cell{A: 5, B: 5, C: 5, Alpha: 150, Beta: 150, Gamma: 150}
	require.True(t, math.IsNaN(c.Volume()))
	require.False(t, c.Reciprocal().Valid)
}

func TestIsoToUAndUeqAgree(t *testing.T) {
	c := Cell{A: 4, B: 5, C: 6, Alpha: 80, Beta: 95, Gamma: 110}
	r := c.Reciprocal()
	u := r.IsoToU(0.012)
	require.InDelta(t, 0.012, c.Ueq(u), 1e-12)
}

func TestUToBetaOrthogonal(t *testing.T) {
	c := Cell{A: 2, B: 4, C: 5, Alpha: 90, Beta: 90, Gamma: 90}
	b := c.Reciprocal().UToBeta([6]float64{0.01, 0.01, 0.01, 0, 0, 0})
	require.InDelta(t, 2*math.Pi*math.Pi*0.01/4, b[0], 1e-12)
	require.InDelta(t, 0, b[3], 1e-15)
}
