package structure

import (
	"fmt"
	"math"

	"diffractcore/internal/elements"
	"diffractcore/internal/lattice"
	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

// AtomSpec carries the initial values of a new atom site.
type AtomSpec struct {
	Label     string
	Specie    string
	Frac      [3]float64
	Occupancy float64
	ADPType   string
	Uiso      float64
	Uani      [6]float64
}

// DefaultAtomSpec returns the site added when the user asks for a new atom
// without details.
func (p *Phase) DefaultAtomSpec() AtomSpec {
	return AtomSpec{
		Label:     p.NextAtomLabel(),
		Specie:    "O",
		Frac:      [3]float64{0.05, 0.05, 0.05},
		Occupancy: 1,
		ADPType:   domain.ADPIsotropic,
	}
}

// NextAtomLabel returns the first unused label of the form LabelN.
func (p *Phase) NextAtomLabel() string {
	for n := len(p.Atoms) + 1; ; n++ {
		l := fmt.Sprintf(defaultAtomPattern, n)
		if p.atomIndex(l) < 0 {
			return l
		}
	}
}

// Atom returns the site with the given label.
func (p *Phase) Atom(label string) (Atom, bool) {
	i := p.atomIndex(label)
	if i < 0 {
		return Atom{}, false
	}
	return p.Atoms[i], true
}

func (p *Phase) atomIndex(label string) int {
	for i, a := range p.Atoms {
		if a.Label == label {
			return i
		}
	}
	return -1
}

func (p *Phase) atomParamIDs(a Atom) []string {
	ids := []string{
		AtomParamID(p.ID, a.Label, "fract_x"),
		AtomParamID(p.ID, a.Label, "fract_y"),
		AtomParamID(p.ID, a.Label, "fract_z"),
		AtomParamID(p.ID, a.Label, "occupancy"),
	}
	return append(ids, p.adpParamIDs(a.Label, a.ADPType)...)
}

func (p *Phase) adpParamIDs(label, adp string) []string {
	if adp == domain.ADPAnisotropic {
		out := make([]string, len(UaniNames))
		for i, n := range UaniNames {
			out[i] = AtomParamID(p.ID, label, "adp."+n)
		}
		return out
	}
	return []string{AtomParamID(p.ID, label, "adp.u_iso")}
}

// AddAtom declares the parameters of a new site and appends it.
// Occupancy is declared with bounds [0, 1]; a fixed value outside them is
// accepted.
func (p *Phase) AddAtom(store *params.Store, spec AtomSpec) error {
	if !ValidSlug(spec.Label) {
		return domain.Newf(domain.CodeMalformedData, spec.Label, "atom label must match %s", slugPattern)
	}
	if p.atomIndex(spec.Label) >= 0 {
		return domain.Newf(domain.CodeDuplicateID, spec.Label, "atom label already used in phase %s", p.ID)
	}
	if !elements.Known(spec.Specie) {
		return domain.Newf(domain.CodeUnknownID, spec.Specie, "unknown specie")
	}
	adp := spec.ADPType
	if adp == "" {
		adp = domain.ADPIsotropic
	}
	if adp != domain.ADPIsotropic && adp != domain.ADPAnisotropic {
		return domain.Newf(domain.CodeMalformedData, spec.Label, "adp type %q", adp)
	}
	type decl struct {
		attr   string
		value  float64
		bounds params.Bounds
		unit   string
	}
	decls := []decl{
		{"fract_x", spec.Frac[0], params.Unbounded(), ""},
		{"fract_y", spec.Frac[1], params.Unbounded(), ""},
		{"fract_z", spec.Frac[2], params.Unbounded(), ""},
		{"occupancy", spec.Occupancy, params.Between(0, 1), ""},
	}
	if adp == domain.ADPAnisotropic {
		for i, n := range UaniNames {
			decls = append(decls, decl{"adp." + n, spec.Uani[i], params.Unbounded(), "Å²"})
		}
	} else {
		decls = append(decls, decl{"adp.u_iso", spec.Uiso, params.Unbounded(), "Å²"})
	}
	declared := make([]string, 0, len(decls))
	for _, d := range decls {
		id := AtomParamID(p.ID, spec.Label, d.attr)
		if err := store.Declare(id, d.value, d.bounds, false, params.WithUnit(d.unit)); err != nil {
			_ = store.RemoveAll(declared)
			return err
		}
		declared = append(declared, id)
	}
	p.Atoms = append(p.Atoms, Atom{Label: spec.Label, Specie: spec.Specie, ADPType: adp})
	return nil
}

// DuplicateAtom copies a site into new independent parameters. Values,
// bounds and free flags are copied; constraints are not. An empty newLabel
// picks the next default label.
func (p *Phase) DuplicateAtom(store *params.Store, label, newLabel string) (string, error) {
	i := p.atomIndex(label)
	if i < 0 {
		return "", domain.Newf(domain.CodeUnknownID, label, "no atom in phase %s", p.ID)
	}
	if newLabel == "" {
		newLabel = p.NextAtomLabel()
	}
	if !ValidSlug(newLabel) {
		return "", domain.Newf(domain.CodeMalformedData, newLabel, "atom label must match %s", slugPattern)
	}
	if p.atomIndex(newLabel) >= 0 {
		return "", domain.Newf(domain.CodeDuplicateID, newLabel, "atom label already used in phase %s", p.ID)
	}
	src := p.Atoms[i]
	dst := Atom{Label: newLabel, Specie: src.Specie, ADPType: src.ADPType}
	from, to := p.atomParamIDs(src), p.atomParamIDs(dst)
	declared := make([]string, 0, len(to))
	for k := range from {
		param, err := store.Parameter(from[k])
		if err != nil {
			_ = store.RemoveAll(declared)
			return "", err
		}
		free := param.Free && !param.Constrained()
		if err := store.Declare(to[k], param.Value, param.Bounds, free, params.WithUnit(param.Unit)); err != nil {
			_ = store.RemoveAll(declared)
			return "", err
		}
		declared = append(declared, to[k])
	}
	p.Atoms = append(p.Atoms, dst)
	return newLabel, nil
}

// RemoveAtom removes a site and its parameters. Removal is refused while
// other constraints reference any of them.
func (p *Phase) RemoveAtom(store *params.Store, label string) error {
	i := p.atomIndex(label)
	if i < 0 {
		return domain.Newf(domain.CodeUnknownID, label, "no atom in phase %s", p.ID)
	}
	if err := store.RemoveAll(p.atomParamIDs(p.Atoms[i])); err != nil {
		return err
	}
	p.Atoms = append(p.Atoms[:i:i], p.Atoms[i+1:]...)
	return nil
}

// carryADPSettings maps the free flags and bounds of the current displacement
// parameters onto those of the new type. The diagonal terms of Uani stand in
// for Uiso; off-diagonal terms take the free flag but stay unbounded.
func carryADPSettings(prev []params.Parameter, adp string) []params.Parameter {
	if adp == domain.ADPAnisotropic {
		iso := prev[0]
		out := make([]params.Parameter, len(UaniNames))
		for k := range out {
			out[k] = params.Parameter{Free: iso.Free, Bounds: params.Unbounded()}
			if k < 3 {
				out[k].Bounds = iso.Bounds
			}
		}
		return out
	}
	iso := params.Parameter{Bounds: prev[0].Bounds}
	for _, d := range prev[:3] {
		iso.Free = iso.Free || d.Free
	}
	return []params.Parameter{iso}
}

// SetADPType switches a site between isotropic and anisotropic displacement.
// The equivalent isotropic value is preserved in both directions.
func (p *Phase) SetADPType(store *params.Store, label, adp string) error {
	i := p.atomIndex(label)
	if i < 0 {
		return domain.Newf(domain.CodeUnknownID, label, "no atom in phase %s", p.ID)
	}
	if adp != domain.ADPIsotropic && adp != domain.ADPAnisotropic {
		return domain.Newf(domain.CodeMalformedData, label, "adp type %q", adp)
	}
	a := p.Atoms[i]
	if a.ADPType == adp {
		return nil
	}
	cellValues, err := p.CellValues(store)
	if err != nil {
		return err
	}
	cell := lattice.FromArray(cellValues)
	oldIDs := p.adpParamIDs(label, a.ADPType)
	old := make([]float64, len(oldIDs))
	prev := make([]params.Parameter, len(oldIDs))
	for k, id := range oldIDs {
		if prev[k], err = store.Parameter(id); err != nil {
			return err
		}
		old[k] = prev[k].Value
	}

	var values []float64
	if adp == domain.ADPAnisotropic {
		u := [6]float64{old[0], old[0], old[0], 0, 0, 0}
		if r := cell.Reciprocal(); r.Valid {
			u = r.IsoToU(old[0])
		}
		values = u[:]
	} else {
		var u [6]float64
		copy(u[:], old)
		ueq := cell.Ueq(u)
		if math.IsNaN(ueq) {
			ueq = (u[0] + u[1] + u[2]) / 3
		}
		values = []float64{ueq}
	}

	carried := carryADPSettings(prev, adp)
	if err := store.RemoveAll(oldIDs); err != nil {
		return err
	}
	for k, id := range p.adpParamIDs(label, adp) {
		c := carried[k]
		v := values[k]
		if c.Free {
			v = c.Bounds.Clip(v)
		}
		if err := store.Declare(id, v, c.Bounds, c.Free, params.WithUnit("Å²")); err != nil {
			return err
		}
	}
	p.Atoms[i].ADPType = adp
	return nil
}
