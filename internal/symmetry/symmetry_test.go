package symmetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"diffractcore/pkg/domain"
)

func TestParseOpRoundTrip(t *testing.T) {
	for _, s := range []string{"x,y,z", "-y+1/2,x-y,z+3/4", "-x,-y,-z", "y+3/4,x+1/4,-z+1/4", "x-y,x,z+1/6"} {
		op, err := ParseOp(s)
		require.NoError(t, err, s)
		again, err := ParseOp(op.String())
		require.NoError(t, err)
		require.Equal(t, op, again, s)
	}
	op := MustParseOp("-x+0.5, y , -z-1/4")
	require.Equal(t, [3]int{12, 0, 18}, op.T)
}

func TestParseOpErrors(t *testing.T) {
	for _, s := range []string{"x,y", "x,y,", "x,y,q", "x,x,z", "x+1/7,y,z", "x,y,-"} {
		_, err := ParseOp(s)
		require.Error(t, err, s)
	}
}

func TestThenComposes(t *testing.T) {
	four := MustParseOp("-y,x,z")
	two := four.Then(four)
	require.Equal(t, MustParseOp("-x,-y,z"), two)
	screw := MustParseOp("-x,-y,z+1/2")
	require.True(t, screw.Then(screw).IsIdentity())
}

func TestGroupOrders(t *testing.T) {
	want := map[string]int{
		"P 1": 1, "P -1": 2, "P 21": 2, "P 21/c": 4, "C 2/c": 8, "P 21 21 21": 4,
		"P n m a": 8, "C m c m": 16, "P 4/m m m": 16, "P 42/m n m": 16, "P 42/n c m": 16,
		"I 4/m m m": 32, "P -3 m 1": 12, "R -3 m:H": 36, "R -3 m:R": 12, "R -3 c:H": 36,
		"P 63/m": 12, "P 6/m m m": 24, "P 63/m m c": 24, "P m -3 m": 48, "F m -3 m": 192,
		"F d -3 m:2": 192, "I m -3 m": 96, "I a -3 d": 96,
	}
	for sym, order := range want {
		g, err := Lookup(sym, "")
		require.NoError(t, err, sym)
		require.Equal(t, order, g.Order(), sym)
	}
}

// pointGroupOrder is the number of distinct rotation parts for a group number.
func pointGroupOrder(n int) int {
	bounds := []struct{ last, order int }{
		{1, 1}, {2, 2}, {9, 2}, {15, 4}, {46, 4}, {74, 8},
		{82, 4}, {122, 8}, {142, 16},
		{146, 3}, {161, 6}, {167, 12},
		{174, 6}, {190, 12}, {194, 24},
		{199, 12}, {220, 24}, {230, 48},
	}
	for _, b := range bounds {
		if n <= b.last {
			return b.order
		}
	}
	return 0
}

func latticePoints(g *SpaceGroup) int {
	if g.Hall[0] == '-' {
		return len(centeringTranslations[g.Hall[1]]) + 1
	}
	return len(centeringTranslations[g.Hall[0]]) + 1
}

func TestEveryGroupHasTheRightOrder(t *testing.T) {
	seen := map[int]bool{}
	for _, g := range table {
		ops, err := ParseHall(g.Hall)
		require.NoError(t, err, g.Name())
		rotations := map[[3][3]int]bool{}
		for _, op := range ops {
			rotations[op.R] = true
		}
		require.Len(t, rotations, pointGroupOrder(g.Number), g.Name())
		require.Len(t, ops, pointGroupOrder(g.Number)*latticePoints(g), g.Name())
		seen[g.Number] = true
	}
	require.Len(t, seen, 230)
}

func TestEverySymbolResolvesToItsOwnGroup(t *testing.T) {
	for _, g := range table {
		got, err := Lookup(g.Symbol, g.Setting)
		require.NoError(t, err, g.Name())
		require.Same(t, g, got, g.Name())
		got, err = Lookup(g.Name(), "")
		require.NoError(t, err, g.Name())
		require.Same(t, g, got, g.Name())
		for _, a := range g.Aliases {
			got, err := Lookup(a, "")
			require.NoError(t, err, a)
			require.Equal(t, g.Number, got.Number, a)
		}
	}
}

func TestCommonSymbolsResolve(t *testing.T) {
	cases := map[string]int{
		"P m m m": 47, "P 63 m c": 186, "P b c a": 61, "C 2/m": 12, "P 1 21/n 1": 14,
		"I 41/a m d": 141, "R 3 m": 160, "F -4 3 m": 216, "P 4/n b m": 125,
		"F m 3 m": 225, "Pbnm": 62, "C m c a": 64, "P 61 2 2": 178, "Ia-3d": 230,
	}
	for sym, n := range cases {
		g, err := Lookup(sym, "")
		require.NoError(t, err, sym)
		require.Equal(t, n, g.Number, sym)
	}
}

func opSet(ops []Op) map[Op]bool {
	out := make(map[Op]bool, len(ops))
	for _, op := range ops {
		out[op] = true
	}
	return out
}

func TestHallOperationsMatchTabulatedPositions(t *testing.T) {
	cases := []struct {
		name string
		gens []string
	}{
		{"P n m a", []string{"-x+1/2,-y,z+1/2", "-x,y+1/2,-z", "-x,-y,-z"}},
		{"P 42/n c m:2", []string{"-x+1/2,-y+1/2,z", "-y+1/2,x,z+1/2", "-x,y+1/2,-z+1/2", "-x,-y,-z"}},
		{"F d -3 m:2", []string{"-x+3/4,-y+1/4,z+1/2", "-x+1/4,y+1/2,-z+3/4", "z,x,y", "y+3/4,x+1/4,-z+1/2", "-x,-y,-z", "x,y+1/2,z+1/2", "x+1/2,y,z+1/2"}},
		{"R -3 m:H", []string{"-y,x-y,z", "y,x,-z", "-x,-y,-z", "x+2/3,y+1/3,z+1/3"}},
		{"R -3 m:R", []string{"z,x,y", "-z,-y,-x", "-x,-y,-z"}},
		{"P 31 1 2", []string{"-y,x-y,z+1/3", "-y,-x,-z+2/3"}},
		{"P 65 2 2", []string{"x-y,x,z+5/6", "-y,-x,-z+1/6"}},
		{"P 1 21/n 1", []string{"-x+1/2,y+1/2,-z+1/2", "-x,-y,-z"}},
	}
	for _, tc := range cases {
		g, err := Lookup(tc.name, "")
		require.NoError(t, err, tc.name)
		gens := make([]Op, len(tc.gens))
		for i, s := range tc.gens {
			gens[i] = MustParseOp(s)
		}
		require.Equal(t, opSet(closure(gens)), opSet(g.Operations()), tc.name)
	}
}

func TestParseHallErrors(t *testing.T) {
	for _, s := range []string{"", "P", "Q 2", "P 5", "P 2q", "P 3 2 (0 0", "P 2 (0 0 x)", "P 4'", "P 2*", "P 2xy"} {
		_, err := ParseHall(s)
		require.Error(t, err, s)
	}
}

func TestLookupNormalizesAndRejects(t *testing.T) {
	g, err := Lookup("fm-3m", "")
	require.NoError(t, err)
	require.Equal(t, 225, g.Number)
	require.Equal(t, Cubic, g.System())

	g, err = Lookup("P 1 21/c 1", "")
	require.NoError(t, err)
	require.Equal(t, 14, g.Number)

	g, err = Lookup("166", "R")
	require.NoError(t, err)
	require.True(t, g.RhombohedralAxes())

	g, err = Lookup("P 42/n c m", "")
	require.NoError(t, err)
	require.Equal(t, SettingOrigin2, g.Setting)
	g, err = Lookup("P 42/n c m", "1")
	require.NoError(t, err)
	require.Equal(t, SettingOrigin1, g.Setting)

	// single-description groups ignore the code
	g, err = Lookup("F m -3 m", "2")
	require.NoError(t, err)
	require.Equal(t, 225, g.Number)

	_, err = Lookup("R -3 m", "2")
	require.ErrorIs(t, err, domain.ErrInvalidSpaceGroup)
	_, err = Lookup("X 99", "")
	require.ErrorIs(t, err, domain.ErrInvalidSpaceGroup)
	_, err = Lookup("231", "")
	require.ErrorIs(t, err, domain.ErrInvalidSpaceGroup)
	_, err = Lookup("", "")
	require.ErrorIs(t, err, domain.ErrInvalidSpaceGroup)
}

func TestListingBySystem(t *testing.T) {
	require.Equal(t, Triclinic, Systems()[0])
	require.Len(t, Systems(), 7)
	total := 0
	for _, sys := range Systems() {
		nums := Numbers(sys)
		require.NotEmpty(t, nums, sys)
		for _, n := range nums {
			require.Equal(t, sys, SystemForNumber(n))
			require.NotEmpty(t, Settings(n), "%d", n)
		}
		total += len(nums)
	}
	require.Equal(t, 230, total)
	require.Equal(t, []int{1, 2}, Numbers(Triclinic))
	require.Len(t, Numbers(Trigonal), 25)
	require.Nil(t, Numbers("quasicrystal"))

	r := Settings(166)
	require.Len(t, r, 2)
	require.Equal(t, "R -3 m:H", r[0].Name())
	require.Equal(t, "R -3 m:R", r[1].Name())
	require.Empty(t, Settings(0))
	require.Len(t, Symbols(), len(table))
}

func TestMultiplicities(t *testing.T) {
	cases := []struct {
		symbol, setting string
		frac            [3]float64
		want            int
	}{
		{"F m -3 m", "", [3]float64{0, 0, 0}, 4},
		{"F m -3 m", "", [3]float64{0.5, 0.5, 0.5}, 4},
		{"F m -3 m", "", [3]float64{0.25, 0.25, 0.25}, 8},
		{"F m -3 m", "", [3]float64{0.11, 0.23, 0.37}, 192},
		{"P m -3 m", "", [3]float64{0.11, 0.23, 0.37}, 48},
		{"I m -3 m", "", [3]float64{0, 0, 0}, 2},
		{"P 21/c", "", [3]float64{0.1, 0.2, 0.3}, 4},
		{"P 21/c", "", [3]float64{0, 0, 0}, 2},
		{"P n m a", "", [3]float64{0.1, 0.2, 0.3}, 8},
		{"P n m a", "", [3]float64{0.1, 0.25, 0.3}, 4},
		{"F d -3 m", "2", [3]float64{0.125, 0.125, 0.125}, 8},
		{"P 63/m m c", "", [3]float64{1.0 / 3, 2.0 / 3, 0.25}, 2},
		{"R -3 m", "H", [3]float64{0, 0, 0}, 3},
		{"P 42/n c m", "", [3]float64{0.125, 0.167, 0.107}, 16},
	}
	for _, tc := range cases {
		g, err := Lookup(tc.symbol, tc.setting)
		require.NoError(t, err)
		require.Equal(t, tc.want, Multiplicity(g.Operations(), tc.frac, DefaultTolerance), "%s %v", tc.symbol, tc.frac)
	}
}

func TestExpandIsIdempotentAndPure(t *testing.T) {
	g, err := Lookup("F m -3 m", "")
	require.NoError(t, err)
	beta := [6]float64{0.01, 0.02, 0.03, 0.001, 0, 0}
	reps := []Site{
		{Label: "Na", Specie: "Na", Frac: [3]float64{0, 0, 0}, Occupancy: 1},
		{Label: "Cl", Specie: "Cl", Frac: [3]float64{0.5, 0.5, 0.5}, Occupancy: 1, Beta: &beta},
	}
	orig := reps[1].Frac
	once := Expand(g.Operations(), reps, DefaultTolerance)
	require.Len(t, once, 8)
	twice := Expand(g.Operations(), once, DefaultTolerance)
	require.Equal(t, once, twice)
	require.Equal(t, orig, reps[1].Frac)
	require.Equal(t, [6]float64{0.01, 0.02, 0.03, 0.001, 0, 0}, *reps[1].Beta)
	for _, s := range once {
		for _, x := range s.Frac {
			require.GreaterOrEqual(t, x, 0.0)
			require.Less(t, x, 1.0)
		}
	}
}

func TestExpandDedupesNearCoincidentPositions(t *testing.T) {
	g, err := Lookup("P -1", "")
	require.NoError(t, err)
	// 0.50001 maps onto 0.49999 under inversion: within tolerance of itself.
	out := Expand(g.Operations(), []Site{{Label: "O1", Frac: [3]float64{0.50001, 0.5, 0.5}}}, DefaultTolerance)
	require.Len(t, out, 1)
	out = Expand(g.Operations(), []Site{{Label: "O1", Frac: [3]float64{0.5005, 0.5, 0.5}}}, DefaultTolerance)
	require.Len(t, out, 2)
}

func TestTransformBetaIsotropicInvariantUnderCubicOps(t *testing.T) {
	g, err := Lookup("P m -3 m", "")
	require.NoError(t, err)
	iso := [6]float64{0.02, 0.02, 0.02, 0, 0, 0}
	for _, op := range g.Operations() {
		require.Equal(t, iso, transformBeta(op, iso))
	}
	swap := MustParseOp("y,x,z")
	require.Equal(t, [6]float64{2, 1, 3, 4, 6, 5}, transformBeta(swap, [6]float64{1, 2, 3, 4, 5, 6}))
}

func TestCellTies(t *testing.T) {
	require.Empty(t, CellTies(Triclinic, false))
	tet := CellTies(Tetragonal, false)
	require.Equal(t, CellTie{Param: CellB, Ref: CellA}, tet[0])
	require.True(t, CellConsistent(Hexagonal, false, [6]float64{3, 3, 5, 90, 90, 120}, 1e-9))
	require.False(t, CellConsistent(Cubic, false, [6]float64{3, 3, 5, 90, 90, 90}, 1e-9))
	require.True(t, CellConsistent(Trigonal, true, [6]float64{5, 5, 5, 60, 60, 60}, 1e-9))
}
