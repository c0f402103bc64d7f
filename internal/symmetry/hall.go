package symmetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Rotation parts of the proper rotations about the principal axes, keyed by
// axis then fold.
var axisRotations = map[byte]map[int][3][3]int{
	'x': {
		1: Identity.R,
		2: {{1, 0, 0}, {0, -1, 0}, {0, 0, -1}},
		3: {{1, 0, 0}, {0, 0, -1}, {0, 1, -1}},
		4: {{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
		6: {{1, 0, 0}, {0, 1, -1}, {0, 1, 0}},
	},
	'y': {
		1: Identity.R,
		2: {{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}},
		3: {{-1, 0, 1}, {0, 1, 0}, {-1, 0, 0}},
		4: {{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}},
		6: {{0, 0, 1}, {0, 1, 0}, {-1, 0, 1}},
	},
	'z': {
		1: Identity.R,
		2: {{-1, 0, 0}, {0, -1, 0}, {0, 0, 1}},
		3: {{0, -1, 0}, {1, -1, 0}, {0, 0, 1}},
		4: {{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		6: {{1, -1, 0}, {1, 0, 0}, {0, 0, 1}},
	},
}

// Two-fold rotations about the face diagonals, keyed by the preceding axis:
// index 0 is the ' direction (a-b for z), index 1 the " direction (a+b).
var diagonalTwofolds = map[byte][2][3][3]int{
	'x': {{{-1, 0, 0}, {0, 0, -1}, {0, -1, 0}}, {{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}}},
	'y': {{{0, 0, -1}, {0, -1, 0}, {-1, 0, 0}}, {{0, 0, 1}, {0, -1, 0}, {1, 0, 0}}},
	'z': {{{0, -1, 0}, {-1, 0, 0}, {0, 0, -1}}, {{0, 1, 0}, {1, 0, 0}, {0, 0, -1}}},
}

// The three-fold rotation about the body diagonal.
var bodyDiagonal = [3][3]int{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}

// Translation symbols in 1/24 units.
var hallTranslations = map[byte][3]int{
	'a': {12, 0, 0}, 'b': {0, 12, 0}, 'c': {0, 0, 12}, 'n': {12, 12, 12},
	'u': {6, 0, 0}, 'v': {0, 6, 0}, 'w': {0, 0, 6}, 'd': {6, 6, 6},
}

// ParseHall expands a Hall symbol such as "-P 2ac 2n" or "P 31 2c (0 0 1)"
// into every operation of the group, lattice centering included.
func ParseHall(symbol string) ([]Op, error) {
	body, shift, err := splitOriginShift(symbol)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return nil, fmt.Errorf("hall symbol %q: want a lattice and at least one operator", symbol)
	}
	lattice := fields[0]
	centric := strings.HasPrefix(lattice, "-")
	lattice = strings.TrimPrefix(lattice, "-")
	if len(lattice) != 1 {
		return nil, fmt.Errorf("hall symbol %q: bad lattice %q", symbol, fields[0])
	}
	centering, ok := centeringTranslations[lattice[0]]
	if !ok {
		return nil, fmt.Errorf("hall symbol %q: unknown lattice %q", symbol, lattice)
	}

	var gens []Op
	if centric {
		gens = append(gens, Op{R: negate(Identity.R)})
	}
	var prevFold int
	var prevAxis byte
	for i, tok := range fields[1:] {
		op, fold, axis, err := parseHallOperator(tok, i, prevFold, prevAxis)
		if err != nil {
			return nil, fmt.Errorf("hall symbol %q: %w", symbol, err)
		}
		gens = append(gens, op)
		prevFold, prevAxis = fold, axis
	}
	for i := range gens {
		gens[i] = shiftOrigin(gens[i], shift)
	}
	for _, t := range centering {
		gens = append(gens, Op{R: Identity.R, T: t})
	}
	return closure(gens), nil
}

// MustParseHall panics on malformed input; for table entries.
func MustParseHall(symbol string) []Op {
	ops, err := ParseHall(symbol)
	if err != nil {
		panic(err)
	}
	return ops
}

// splitOriginShift separates a trailing "(a b c)" origin shift, given in
// 1/12 units, and returns it in 1/24 units.
func splitOriginShift(symbol string) (string, [3]int, error) {
	var shift [3]int
	open := strings.IndexByte(symbol, '(')
	if open < 0 {
		return symbol, shift, nil
	}
	end := strings.IndexByte(symbol, ')')
	if end < open {
		return "", shift, fmt.Errorf("hall symbol %q: unterminated origin shift", symbol)
	}
	parts := strings.Fields(symbol[open+1 : end])
	if len(parts) != 3 {
		return "", shift, fmt.Errorf("hall symbol %q: origin shift needs three components", symbol)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return "", shift, fmt.Errorf("hall symbol %q: origin shift: %w", symbol, err)
		}
		shift[i] = 2 * v
	}
	return symbol[:open], shift, nil
}

// parseHallOperator decodes one operator token. pos is its index among the
// operators; the previous fold and axis drive the implicit axis rules.
func parseHallOperator(tok string, pos, prevFold int, prevAxis byte) (Op, int, byte, error) {
	s := tok
	improper := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" || !strings.ContainsRune("12346", rune(s[0])) {
		return Op{}, 0, 0, fmt.Errorf("operator %q: bad rotation order", tok)
	}
	fold := int(s[0] - '0')
	s = s[1:]
	screw := 0
	if s != "" && s[0] >= '1' && s[0] <= '5' {
		screw = int(s[0] - '0')
		if screw >= fold {
			return Op{}, 0, 0, fmt.Errorf("operator %q: screw %d too large", tok, screw)
		}
		s = s[1:]
	}
	var axis byte
	var trans [3]int
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == 'x' || c == 'y' || c == 'z' || c == '\'' || c == '"' || c == '*':
			if axis != 0 {
				return Op{}, 0, 0, fmt.Errorf("operator %q: two axes", tok)
			}
			axis = c
		default:
			t, ok := hallTranslations[c]
			if !ok {
				return Op{}, 0, 0, fmt.Errorf("operator %q: unexpected %q", tok, c)
			}
			for k := range trans {
				trans[k] += t[k]
			}
		}
	}
	if axis == 0 {
		axis = implicitAxis(pos, fold, prevFold)
	}

	var r [3][3]int
	switch axis {
	case 'x', 'y', 'z':
		r = axisRotations[axis][fold]
		if screw > 0 {
			trans[axis-'x'] += transDenom * screw / fold
		}
	case '\'', '"':
		if fold != 2 {
			return Op{}, 0, 0, fmt.Errorf("operator %q: diagonal axes take two-fold rotations only", tok)
		}
		ref := prevAxis
		if ref != 'x' && ref != 'y' {
			ref = 'z'
		}
		r = diagonalTwofolds[ref][0]
		if axis == '"' {
			r = diagonalTwofolds[ref][1]
		}
	case '*':
		if fold != 3 {
			return Op{}, 0, 0, fmt.Errorf("operator %q: body diagonal takes three-fold rotations only", tok)
		}
		r = bodyDiagonal
	default:
		if fold != 1 {
			return Op{}, 0, 0, fmt.Errorf("operator %q: axis cannot be inferred", tok)
		}
		r = Identity.R
	}
	if improper {
		r = negate(r)
	}
	op := Op{R: r, T: trans}
	op.normalize()
	return op, fold, axis, nil
}

// implicitAxis applies the default-axis rules of Hall notation.
func implicitAxis(pos, fold, prevFold int) byte {
	switch {
	case fold == 1:
		return 0
	case pos == 0:
		return 'z'
	case pos == 1 && fold == 2 && (prevFold == 2 || prevFold == 4):
		return 'x'
	case pos == 1 && fold == 2 && (prevFold == 3 || prevFold == 6):
		return '\''
	case pos == 2 && fold == 3:
		return '*'
	}
	return 0
}

// shiftOrigin rewrites the operation for an origin moved by v:
// T' = T - (R - I)·v.
func shiftOrigin(op Op, v [3]int) Op {
	if v == [3]int{} {
		return op
	}
	for i := 0; i < 3; i++ {
		rv := 0
		for j := 0; j < 3; j++ {
			rv += op.R[i][j] * v[j]
		}
		op.T[i] -= rv - v[i]
	}
	op.normalize()
	return op
}

func negate(m [3][3]int) [3][3]int {
	for i := range m {
		for j := range m[i] {
			m[i][j] = -m[i][j]
		}
	}
	return m
}
