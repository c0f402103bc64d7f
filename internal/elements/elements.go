// Package elements holds per-element scattering data.
package elements

import (
	"sort"
	"strings"
	"unicode"

	"diffractcore/pkg/domain"
)

// coherent neutron scattering lengths in fm (Sears, Neutron News 3, 1992).
var scatteringLengths = map[string]float64{
	"H": -3.739, "D": 6.671, "Li": -1.90, "Be": 7.79, "B": 5.30, "C": 6.646,
	"N": 9.36, "O": 5.803, "F": 5.654, "Na": 3.63, "Mg": 5.375, "Al": 3.449,
	"Si": 4.1491, "P": 5.13, "S": 2.847, "Cl": 9.577, "K": 3.67, "Ca": 4.70,
	"Sc": 12.29, "Ti": -3.438, "V": -0.3824, "Cr": 3.635, "Mn": -3.73, "Fe": 9.45,
	"Co": 2.49, "Ni": 10.3, "Cu": 7.718, "Zn": 5.68, "Ga": 7.288, "Ge": 8.185,
	"As": 6.58, "Se": 7.97, "Br": 6.795, "Rb": 7.09, "Sr": 7.02, "Y": 7.75,
	"Zr": 7.16, "Nb": 7.054, "Mo": 6.715, "Ag": 5.922, "Cd": 4.87, "In": 4.065,
	"Sn": 6.225, "Sb": 5.57, "Te": 5.80, "I": 5.28, "Cs": 5.42, "Ba": 5.07,
	"La": 8.24, "Ce": 4.84, "Pr": 4.58, "Nd": 7.69, "Sm": 0.80, "Eu": 7.22,
	"Gd": 6.5, "Tb": 7.38, "Dy": 16.9, "Ho": 8.01, "Er": 7.79, "Yb": 12.43,
	"Lu": 7.21, "Hf": 7.7, "Ta": 6.91, "W": 4.86, "Pt": 9.60, "Au": 7.63,
	"Hg": 12.692, "Tl": 8.776, "Pb": 9.405, "Bi": 8.532, "Th": 10.31, "U": 8.417,
}

// Symbol strips oxidation state and isotope decorations from a specie label:
// "Fe3+" and "O2-" become "Fe" and "O".
func Symbol(specie string) string {
	s := strings.TrimSpace(specie)
	end := 0
	for i, r := range s {
		if !unicode.IsLetter(r) {
			break
		}
		end = i + 1
	}
	s = s[:end]
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// ScatteringLength returns the coherent neutron scattering length of specie
// in fm.
func ScatteringLength(specie string) (float64, error) {
	b, ok := scatteringLengths[Symbol(specie)]
	if !ok {
		return 0, domain.Newf(domain.CodeUnknownID, specie, "no scattering length for specie")
	}
	return b, nil
}

// Known reports whether specie resolves to a tabulated element.
func Known(specie string) bool {
	_, ok := scatteringLengths[Symbol(specie)]
	return ok
}

// Symbols lists every tabulated element.
func Symbols() []string {
	out := make([]string, 0, len(scatteringLengths))
	for s := range scatteringLengths {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
