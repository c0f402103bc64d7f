package symmetry

import (
	"strconv"
	"strings"
	"sync"

	"diffractcore/pkg/domain"
)

// CrystalSystem classifies a space group by its lattice symmetry.
type CrystalSystem string

// Crystal systems.
const (
	Triclinic    CrystalSystem = "triclinic"
	Monoclinic   CrystalSystem = "monoclinic"
	Orthorhombic CrystalSystem = "orthorhombic"
	Tetragonal   CrystalSystem = "tetragonal"
	Trigonal     CrystalSystem = "trigonal"
	Hexagonal    CrystalSystem = "hexagonal"
	Cubic        CrystalSystem = "cubic"
)

// SystemForNumber maps an International Tables number to its crystal system.
func SystemForNumber(n int) CrystalSystem {
	switch {
	case n <= 2:
		return Triclinic
	case n <= 15:
		return Monoclinic
	case n <= 74:
		return Orthorhombic
	case n <= 142:
		return Tetragonal
	case n <= 167:
		return Trigonal
	case n <= 194:
		return Hexagonal
	default:
		return Cubic
	}
}

// Settings used by groups with more than one conventional description.
const (
	SettingHexagonal    = "H"
	SettingRhombohedral = "R"
	SettingOrigin1      = "1"
	SettingOrigin2      = "2"
)

// SpaceGroup is one entry of the table.
type SpaceGroup struct {
	Number  int
	Symbol  string
	Setting string
	Hall    string
	Aliases []string

	once sync.Once
	ops  []Op
}

// System returns the crystal system of the group.
func (g *SpaceGroup) System() CrystalSystem { return SystemForNumber(g.Number) }

// RhombohedralAxes reports whether the group is described on rhombohedral axes.
func (g *SpaceGroup) RhombohedralAxes() bool { return g.Setting == SettingRhombohedral }

// Name is the symbol with its setting code, e.g. "R -3 m:H".
func (g *SpaceGroup) Name() string {
	if g.Setting == "" {
		return g.Symbol
	}
	return g.Symbol + ":" + g.Setting
}

// Operations returns every operation of the group, centering included. The
// slice is shared; callers must not modify it.
func (g *SpaceGroup) Operations() []Op {
	g.once.Do(func() { g.ops = MustParseHall(g.Hall) })
	return g.ops
}

// Order returns the number of operations.
func (g *SpaceGroup) Order() int { return len(g.Operations()) }

// OperationStrings renders every operation in "x,y,z" notation.
func (g *SpaceGroup) OperationStrings() []string {
	ops := g.Operations()
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

// Lattice centering translations in 1/24 units. R is the obverse setting on
// hexagonal axes.
var centeringTranslations = map[byte][][3]int{
	'P': nil,
	'A': {{0, 12, 12}},
	'B': {{12, 0, 12}},
	'C': {{12, 12, 0}},
	'I': {{12, 12, 12}},
	'F': {{0, 12, 12}, {12, 0, 12}, {12, 12, 0}},
	'R': {{16, 8, 8}, {8, 16, 16}},
}

func normalizeSymbol(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ToLower(s)
}

var (
	indexOnce sync.Once
	bySymbol  map[string][]*SpaceGroup
	byNumber  map[int][]*SpaceGroup
)

// buildIndex keys every symbol and alias. Cubic symbols are also reachable
// without the bar on the three-fold axis ("F m 3 m").
func buildIndex() {
	bySymbol = make(map[string][]*SpaceGroup)
	byNumber = make(map[int][]*SpaceGroup)
	add := func(name string, g *SpaceGroup) {
		k := normalizeSymbol(name)
		for _, have := range bySymbol[k] {
			if have == g {
				return
			}
		}
		bySymbol[k] = append(bySymbol[k], g)
	}
	for _, g := range table {
		byNumber[g.Number] = append(byNumber[g.Number], g)
		add(g.Symbol, g)
		for _, a := range g.Aliases {
			add(a, g)
		}
		if g.System() == Cubic && strings.Contains(g.Symbol, " -3") {
			add(strings.Replace(g.Symbol, " -3", " 3", 1), g)
		}
	}
}

// Lookup resolves a Hermann–Mauguin symbol (spacing and case insensitive) or
// an International Tables number, plus an optional setting code. The setting
// may also be given as a ":code" suffix of the symbol. An empty setting
// selects the default description of the group; a setting code is ignored
// for groups with a single description.
func Lookup(symbol, setting string) (*SpaceGroup, error) {
	indexOnce.Do(buildIndex)
	name, suffix, _ := strings.Cut(symbol, ":")
	key := normalizeSymbol(name)
	if key == "" {
		return nil, domain.Newf(domain.CodeInvalidSpaceGroup, symbol, "empty symbol")
	}
	setting = strings.ToUpper(strings.TrimSpace(setting))
	if setting == "" {
		setting = strings.ToUpper(strings.TrimSpace(suffix))
	}
	candidates := bySymbol[key]
	if number, err := strconv.Atoi(key); err == nil {
		candidates = byNumber[number]
	}
	if len(candidates) == 0 {
		return nil, domain.Newf(domain.CodeInvalidSpaceGroup, symbol, "unknown space group")
	}
	if setting == "" {
		return candidates[0], nil
	}
	described := false
	for _, g := range candidates {
		if g.Setting == setting {
			return g, nil
		}
		described = described || g.Setting != ""
	}
	if !described {
		return candidates[0], nil
	}
	return nil, domain.Newf(domain.CodeInvalidSpaceGroup, symbol, "setting %q not available", setting)
}

// Symbols lists every description in the table as "symbol[:setting]",
// sorted by number.
func Symbols() []string {
	out := make([]string, 0, len(table))
	for _, g := range table {
		out = append(out, g.Name())
	}
	return out
}

// Systems lists the crystal systems from lowest to highest symmetry.
func Systems() []CrystalSystem {
	return []CrystalSystem{Triclinic, Monoclinic, Orthorhombic, Tetragonal, Trigonal, Hexagonal, Cubic}
}

// Numbers lists the International Tables numbers belonging to a crystal
// system in ascending order. It returns nil for an unknown system.
func Numbers(system CrystalSystem) []int {
	var out []int
	for n := 1; n <= 230; n++ {
		if SystemForNumber(n) == system {
			out = append(out, n)
		}
	}
	return out
}

// Settings lists the descriptions available for a space group number, the
// default first.
func Settings(number int) []*SpaceGroup {
	indexOnce.Do(buildIndex)
	return append([]*SpaceGroup(nil), byNumber[number]...)
}
