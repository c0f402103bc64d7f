package symmetry

// CellParam names one of the six unit-cell parameters.
type CellParam int

// Cell parameters in conventional order.
const (
	CellA CellParam = iota
	CellB
	CellC
	CellAlpha
	CellBeta
	CellGamma
)

// CellParams lists all six cell parameters in order.
var CellParams = []CellParam{CellA, CellB, CellC, CellAlpha, CellBeta, CellGamma}

func (p CellParam) String() string {
	return [...]string{"length_a", "length_b", "length_c", "angle_alpha", "angle_beta", "angle_gamma"}[p]
}

// CellTie couples a cell parameter to the symmetry of the lattice: either it
// equals another cell parameter (Ref) or it is pinned to a fixed value.
type CellTie struct {
	Param CellParam
	Ref   CellParam
	Value float64
	Fixed bool
}

// CellTies returns the constraints a crystal system imposes on the cell.
// Monoclinic groups use the unique-axis-b convention.
func CellTies(system CrystalSystem, rhombohedral bool) []CellTie {
	right := func(ps ...CellParam) []CellTie {
		out := make([]CellTie, 0, len(ps))
		for _, p := range ps {
			out = append(out, CellTie{Param: p, Value: 90, Fixed: true})
		}
		return out
	}
	switch system {
	case Monoclinic:
		return right(CellAlpha, CellGamma)
	case Orthorhombic:
		return right(CellAlpha, CellBeta, CellGamma)
	case Tetragonal:
		return append([]CellTie{{Param: CellB, Ref: CellA}}, right(CellAlpha, CellBeta, CellGamma)...)
	case Trigonal, Hexagonal:
		if rhombohedral {
			return []CellTie{
				{Param: CellB, Ref: CellA},
				{Param: CellC, Ref: CellA},
				{Param: CellBeta, Ref: CellAlpha},
				{Param: CellGamma, Ref: CellAlpha},
			}
		}
		return append([]CellTie{{Param: CellB, Ref: CellA}},
			append(right(CellAlpha, CellBeta), CellTie{Param: CellGamma, Value: 120, Fixed: true})...)
	case Cubic:
		return append([]CellTie{{Param: CellB, Ref: CellA}, {Param: CellC, Ref: CellA}}, right(CellAlpha, CellBeta, CellGamma)...)
	}
	return nil
}

// CellConsistent reports whether the six cell values satisfy the ties of the
// crystal system within tol.
func CellConsistent(system CrystalSystem, rhombohedral bool, cell [6]float64, tol float64) bool {
	for _, t := range CellTies(system, rhombohedral) {
		want := t.Value
		if !t.Fixed {
			want = cell[t.Ref]
		}
		d := cell[t.Param] - want
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}
