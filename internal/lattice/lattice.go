// Package lattice provides unit-cell geometry: metric tensors, d-spacings and
// conversions between displacement-parameter conventions.
package lattice

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Cell holds lengths in Å and angles in degrees.
type Cell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
}

// FromArray builds a cell from a, b, c, α, β, γ.
func FromArray(v [6]float64) Cell {
	return Cell{A: v[0], B: v[1], C: v[2], Alpha: v[3], Beta: v[4], Gamma: v[5]}
}

// Array returns a, b, c, α, β, γ.
func (c Cell) Array() [6]float64 {
	return [6]float64{c.A, c.B, c.C, c.Alpha, c.Beta, c.Gamma}
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// Volume returns the cell volume, NaN when the parameters do not describe a cell.
func (c Cell) Volume() float64 {
	ca, cb, cg := math.Cos(rad(c.Alpha)), math.Cos(rad(c.Beta)), math.Cos(rad(c.Gamma))
	arg := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if arg <= 0 || c.A <= 0 || c.B <= 0 || c.C <= 0 {
		return math.NaN()
	}
	return c.A * c.B * c.C * math.Sqrt(arg)
}

// Metric is the direct metric tensor G.
func (c Cell) Metric() *mat.SymDense {
	ca, cb, cg := math.Cos(rad(c.Alpha)), math.Cos(rad(c.Beta)), math.Cos(rad(c.Gamma))
	return mat.NewSymDense(3, []float64{
		c.A * c.A, c.A * c.B * cg, c.A * c.C * cb,
		c.A * c.B * cg, c.B * c.B, c.B * c.C * ca,
		c.A * c.C * cb, c.B * c.C * ca, c.C * c.C,
	})
}

// Reciprocal holds the reciprocal metric tensor G* and reciprocal lengths.
type Reciprocal struct {
	G     [3][3]float64
	Star  [3]float64
	Valid bool
}

// Reciprocal inverts the metric tensor. Valid is false for degenerate cells.
func (c Cell) Reciprocal() Reciprocal {
	if math.IsNaN(c.Volume()) {
		return Reciprocal{}
	}
	var inv mat.Dense
	if err := inv.Inverse(c.Metric()); err != nil {
		return Reciprocal{}
	}
	var r Reciprocal
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.G[i][j] = inv.At(i, j)
		}
		r.Star[i] = math.Sqrt(r.G[i][i])
	}
	r.Valid = true
	return r
}

// InvD2 returns 1/d² for the reflection hkl.
func (r Reciprocal) InvD2(h [3]float64) float64 {
	var s float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s += h[i] * r.G[i][j] * h[j]
		}
	}
	return s
}

// UToBeta converts U (U11 U22 U33 U12 U13 U23, Å²) into the dimensionless β
// tensor used in exp(-hᵀβh).
func (r Reciprocal) UToBeta(u [6]float64) [6]float64 {
	s := r.Star
	f := 2 * math.Pi * math.Pi
	return [6]float64{
		f * s[0] * s[0] * u[0],
		f * s[1] * s[1] * u[1],
		f * s[2] * s[2] * u[2],
		f * s[0] * s[1] * u[3],
		f * s[0] * s[2] * u[4],
		f * s[1] * s[2] * u[5],
	}
}

// IsoToU expands an isotropic U into the equivalent anisotropic tensor.
func (r Reciprocal) IsoToU(uiso float64) [6]float64 {
	s := r.Star
	return [6]float64{
		uiso, uiso, uiso,
		uiso * r.G[0][1] / (s[0] * s[1]),
		uiso * r.G[0][2] / (s[0] * s[2]),
		uiso * r.G[1][2] / (s[1] * s[2]),
	}
}

// Ueq returns the equivalent isotropic U of an anisotropic tensor.
func (c Cell) Ueq(u [6]float64) float64 {
	r := c.Reciprocal()
	if !r.Valid {
		return math.NaN()
	}
	g := c.Metric()
	full := [3][3]float64{
		{u[0], u[3], u[4]},
		{u[3], u[1], u[5]},
		{u[4], u[5], u[2]},
	}
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += full[i][j] * r.Star[i] * r.Star[j] * g.At(i, j)
		}
	}
	return sum / 3
}
