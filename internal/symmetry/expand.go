package symmetry

import "math"

// DefaultTolerance is the fractional-coordinate distance under which two
// generated positions are considered the same site.
const DefaultTolerance = 1e-4

// Site is one atom position. Beta holds the anisotropic displacement tensor
// in reciprocal-lattice form (β11 β22 β33 β12 β13 β23) and is nil for
// isotropic sites.
type Site struct {
	Label     string
	Specie    string
	Frac      [3]float64
	Occupancy float64
	Uiso      float64
	Beta      *[6]float64
}

// Expand applies every operation to every site and returns a fresh slice of
// the distinct positions, wrapped into [0,1). Positions are deduplicated per
// label within tol, so expanding an already expanded list adds nothing.
// Inputs are never modified.
func Expand(ops []Op, sites []Site, tol float64) []Site {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	kept := make(map[string][][3]float64)
	out := make([]Site, 0, len(sites)*len(ops))
	for _, s := range sites {
		for _, op := range ops {
			pos := wrap(op.Apply(s.Frac))
			if containsPosition(kept[s.Label], pos, tol) {
				continue
			}
			kept[s.Label] = append(kept[s.Label], pos)
			gen := s
			gen.Frac = pos
			if s.Beta != nil {
				b := transformBeta(op, *s.Beta)
				gen.Beta = &b
			}
			out = append(out, gen)
		}
	}
	return out
}

// Multiplicity returns the number of distinct positions in the orbit of frac.
func Multiplicity(ops []Op, frac [3]float64, tol float64) int {
	return len(Expand(ops, []Site{{Label: "_", Frac: frac}}, tol))
}

func wrap(v [3]float64) [3]float64 {
	for i := range v {
		x := v[i] - math.Floor(v[i])
		if x >= 1 {
			x = 0
		}
		if x == 0 {
			x = 0 // normalizes -0
		}
		v[i] = x
	}
	return v
}

func containsPosition(list [][3]float64, p [3]float64, tol float64) bool {
	for _, q := range list {
		same := true
		for i := 0; i < 3; i++ {
			d := p[i] - q[i]
			d -= math.Round(d)
			if math.Abs(d) >= tol {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

// transformBeta rotates β with the operation: β' = R β Rᵀ.
func transformBeta(op Op, b [6]float64) [6]float64 {
	m := [3][3]float64{
		{b[0], b[3], b[4]},
		{b[3], b[1], b[5]},
		{b[4], b[5], b[2]},
	}
	var tmp, res [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				tmp[i][j] += float64(op.R[i][k]) * m[k][j]
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				res[i][j] += tmp[i][k] * float64(op.R[j][k])
			}
		}
	}
	return [6]float64{res[0][0], res[1][1], res[2][2], res[0][1], res[0][2], res[1][2]}
}
