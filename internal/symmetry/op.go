// Package symmetry holds the space-group table, symmetry operations and the
// pure expansion of representative atom sites into full unit-cell contents.
package symmetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// transDenom is the common denominator of all crystallographic translations.
const transDenom = 24

// Op is a symmetry operation x' = R·x + T/24 acting on fractional coordinates.
// Translations are kept as exact integers in units of 1/24, reduced modulo 24.
type Op struct {
	R [3][3]int
	T [3]int
}

// Identity is the operation x,y,z.
var Identity = Op{R: [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}

// ParseOp parses an operation in the "x,y,z" notation, e.g. "-y+1/2,x-y,z+3/4".
func ParseOp(s string) (Op, error) {
	parts := strings.Split(strings.ReplaceAll(strings.ToLower(s), " ", ""), ",")
	if len(parts) != 3 {
		return Op{}, fmt.Errorf("symmetry operation %q: want 3 components", s)
	}
	var op Op
	for row, part := range parts {
		if part == "" {
			return Op{}, fmt.Errorf("symmetry operation %q: empty component", s)
		}
		var num float64
		i := 0
		for i < len(part) {
			sign := 1
			if part[i] == '+' || part[i] == '-' {
				if part[i] == '-' {
					sign = -1
				}
				i++
			}
			if i >= len(part) {
				return Op{}, fmt.Errorf("symmetry operation %q: dangling sign", s)
			}
			switch c := part[i]; {
			case c == 'x' || c == 'y' || c == 'z':
				op.R[row][c-'x'] += sign
				i++
			case (c >= '0' && c <= '9') || c == '.':
				j := i
				for j < len(part) && ((part[j] >= '0' && part[j] <= '9') || part[j] == '.' || part[j] == '/') {
					j++
				}
				v, err := parseFraction(part[i:j])
				if err != nil {
					return Op{}, fmt.Errorf("symmetry operation %q: %w", s, err)
				}
				i = j
				// a coefficient directly before a variable, e.g. "2x", is not a translation
				if i < len(part) && (part[i] == 'x' || part[i] == 'y' || part[i] == 'z') {
					op.R[row][part[i]-'x'] += sign * int(v)
					i++
					continue
				}
				num += float64(sign) * v
			default:
				return Op{}, fmt.Errorf("symmetry operation %q: unexpected %q", s, c)
			}
		}
		t := num * transDenom
		if math.Abs(t-math.Round(t)) > 1e-6 {
			return Op{}, fmt.Errorf("symmetry operation %q: translation %v is not a multiple of 1/24", s, num)
		}
		op.T[row] = int(math.Round(t))
	}
	op.normalize()
	if det(op.R) != 1 && det(op.R) != -1 {
		return Op{}, fmt.Errorf("symmetry operation %q: rotation part is singular", s)
	}
	return op, nil
}

func parseFraction(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad fraction %q", s)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}

// MustParseOp panics on malformed input; for table literals.
func MustParseOp(s string) Op {
	op, err := ParseOp(s)
	if err != nil {
		panic(err)
	}
	return op
}

func (o *Op) normalize() {
	for i := range o.T {
		o.T[i] = ((o.T[i] % transDenom) + transDenom) % transDenom
	}
}

// Then returns the operation "apply o, then p".
func (o Op) Then(p Op) Op {
	var out Op
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out.R[i][j] += p.R[i][k] * o.R[k][j]
			}
		}
		t := p.T[i]
		for k := 0; k < 3; k++ {
			t += p.R[i][k] * o.T[k]
		}
		out.T[i] = t
	}
	out.normalize()
	return out
}

// Apply maps fractional coordinates through the operation.
func (o Op) Apply(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = float64(o.T[i]) / transDenom
		for j := 0; j < 3; j++ {
			out[i] += float64(o.R[i][j]) * v[j]
		}
	}
	return out
}

// IsIdentity reports whether the operation leaves every point in place.
func (o Op) IsIdentity() bool { return o == Identity }

// String renders the operation in "x,y,z" notation.
func (o Op) String() string {
	comps := make([]string, 3)
	for i := 0; i < 3; i++ {
		var b strings.Builder
		for j, name := range []string{"x", "y", "z"} {
			switch c := o.R[i][j]; {
			case c == 1:
				if b.Len() > 0 {
					b.WriteString("+")
				}
				b.WriteString(name)
			case c == -1:
				b.WriteString("-" + name)
			case c > 1:
				if b.Len() > 0 {
					b.WriteString("+")
				}
				fmt.Fprintf(&b, "%d%s", c, name)
			case c < -1:
				fmt.Fprintf(&b, "%d%s", c, name)
			}
		}
		if t := o.T[i]; t != 0 {
			g := gcd(t, transDenom)
			fmt.Fprintf(&b, "+%d/%d", t/g, transDenom/g)
		}
		comps[i] = b.String()
	}
	return strings.Join(comps, ",")
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func det(m [3][3]int) int {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// closure generates the finite group spanned by the generators. Operations
// appear in discovery order with the identity first, so the result is stable.
func closure(gens []Op) []Op {
	ops := []Op{Identity}
	seen := map[Op]bool{Identity: true}
	for i := 0; i < len(ops); i++ {
		for _, g := range gens {
			n := ops[i].Then(g)
			if !seen[n] {
				seen[n] = true
				ops = append(ops, n)
			}
		}
	}
	return ops
}
