// Package structure models crystal phases: space group, unit cell and atom
// sites. Numeric attributes live in the project's parameter store; a Phase
// only maps semantic names onto parameter identifiers.
package structure

import (
	"fmt"
	"regexp"
	"strconv"

	"diffractcore/internal/elements"
	"diffractcore/internal/params"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidSlug reports whether s can be embedded in a parameter identifier.
func ValidSlug(s string) bool { return slugPattern.MatchString(s) }

// Default phase, matching a freshly created project.
const (
	DefaultPhaseName   = "Dichlorine"
	DefaultSpaceGroup  = "P 42/n c m"
	DefaultSetting     = symmetry.SettingOrigin2
	defaultAtomPattern = "Label%d"
)

// DefaultCell is the unit cell of the default phase.
var DefaultCell = [6]float64{8.56, 8.56, 6.12, 90, 90, 90}

// Phase is one crystal structure model.
type Phase struct {
	ID    string
	Name  string
	group *symmetry.SpaceGroup
	Atoms []Atom
}

// Atom is an atom site. Its parameter ids are derived from the phase id and
// the label.
type Atom struct {
	Label   string
	Specie  string
	ADPType string
}

// CellParamID returns the parameter id of one cell parameter.
func CellParamID(phaseID string, p symmetry.CellParam) string {
	return "phases." + phaseID + ".cell." + p.String()
}

// AtomParamID returns the parameter id of an atom attribute such as
// "fract_x" or "adp.u_iso".
func AtomParamID(phaseID, label, attr string) string {
	return "phases." + phaseID + ".atoms." + label + "." + attr
}

// UaniNames are the anisotropic displacement components in CIF order.
var UaniNames = [6]string{"u_11", "u_22", "u_33", "u_12", "u_13", "u_23"}

var cellBounds = [6]params.Bounds{
	params.AtLeast(0.1), params.AtLeast(0.1), params.AtLeast(0.1),
	params.Between(1, 179), params.Between(1, 179), params.Between(1, 179),
}

// NewPhase declares the cell parameters of a new phase and imposes the
// constraints of its crystal system.
func NewPhase(store *params.Store, id, name, symbol, setting string, cell [6]float64) (*Phase, error) {
	if !ValidSlug(id) {
		return nil, domain.Newf(domain.CodeMalformedData, id, "phase id must match %s", slugPattern)
	}
	g, err := symmetry.Lookup(symbol, setting)
	if err != nil {
		return nil, err
	}
	p := &Phase{ID: id, Name: name, group: g}
	var declared []string
	for i, cp := range symmetry.CellParams {
		pid := CellParamID(id, cp)
		unit := "Å"
		if i >= 3 {
			unit = "deg"
		}
		if err := store.Declare(pid, cell[i], cellBounds[i], false, params.WithUnit(unit)); err != nil {
			_ = store.RemoveAll(declared)
			return nil, fmt.Errorf("declare cell: %w", err)
		}
		declared = append(declared, pid)
	}
	if err := p.applyTies(store); err != nil {
		_ = store.RemoveAll(declared)
		return nil, err
	}
	return p, nil
}

// NewDefaultPhase creates the default phase with a single chlorine site.
func NewDefaultPhase(store *params.Store, id string) (*Phase, error) {
	p, err := NewPhase(store, id, DefaultPhaseName, DefaultSpaceGroup, DefaultSetting, DefaultCell)
	if err != nil {
		return nil, err
	}
	spec := AtomSpec{Label: "Cl1", Specie: "Cl", Frac: [3]float64{0.125, 0.167, 0.107}, Occupancy: 1, ADPType: domain.ADPIsotropic}
	if err := p.AddAtom(store, spec); err != nil {
		return nil, err
	}
	return p, nil
}

// SpaceGroup returns the current space group.
func (p *Phase) SpaceGroup() *symmetry.SpaceGroup { return p.group }

// CellIDs returns the six cell parameter ids in conventional order.
func (p *Phase) CellIDs() [6]string {
	var out [6]string
	for i, cp := range symmetry.CellParams {
		out[i] = CellParamID(p.ID, cp)
	}
	return out
}

// Clone returns a copy that can be mutated independently.
func (p *Phase) Clone() *Phase {
	cp := *p
	cp.Atoms = append([]Atom(nil), p.Atoms...)
	return &cp
}

// Rename changes the display name.
func (p *Phase) Rename(name string) error {
	if name == "" {
		return domain.Newf(domain.CodeMalformedData, p.ID, "phase name required")
	}
	p.Name = name
	return nil
}

// SetSpaceGroup switches the space group. Every cell constraint is released
// (values kept) and the ties of the new crystal system are imposed. An
// unknown symbol leaves the phase untouched.
func (p *Phase) SetSpaceGroup(store *params.Store, symbol, setting string) error {
	g, err := symmetry.Lookup(symbol, setting)
	if err != nil {
		return err
	}
	for _, id := range p.CellIDs() {
		if err := store.Untie(id); err != nil {
			return err
		}
	}
	p.group = g
	return p.applyTies(store)
}

func (p *Phase) applyTies(store *params.Store) error {
	for _, tie := range symmetry.CellTies(p.group.System(), p.group.RhombohedralAxes()) {
		src := strconv.FormatFloat(tie.Value, 'g', -1, 64)
		if !tie.Fixed {
			src = CellParamID(p.ID, tie.Ref)
		}
		if err := store.Tie(CellParamID(p.ID, tie.Param), src); err != nil {
			return fmt.Errorf("tie %s: %w", tie.Param, err)
		}
	}
	return nil
}

// CellValues reads the current cell from the store.
func (p *Phase) CellValues(store *params.Store) ([6]float64, error) {
	var out [6]float64
	for i, id := range p.CellIDs() {
		v, err := store.Get(id)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// ParamIDs lists every parameter id owned by the phase.
func (p *Phase) ParamIDs() []string {
	ids := p.CellIDs()
	out := append([]string(nil), ids[:]...)
	for _, a := range p.Atoms {
		out = append(out, p.atomParamIDs(a)...)
	}
	return out
}

// Record converts the phase into its persisted form.
func (p *Phase) Record() domain.PhaseRecord {
	ids := p.CellIDs()
	rec := domain.PhaseRecord{
		ID:         p.ID,
		Name:       p.Name,
		SpaceGroup: p.group.Symbol,
		Setting:    p.group.Setting,
		Cell:       domain.CellRefs{A: ids[0], B: ids[1], C: ids[2], Alpha: ids[3], Beta: ids[4], Gamma: ids[5]},
		Atoms:      make([]domain.AtomRecord, 0, len(p.Atoms)),
	}
	for _, a := range p.Atoms {
		ar := domain.AtomRecord{
			Label:     a.Label,
			Specie:    a.Specie,
			X:         AtomParamID(p.ID, a.Label, "fract_x"),
			Y:         AtomParamID(p.ID, a.Label, "fract_y"),
			Z:         AtomParamID(p.ID, a.Label, "fract_z"),
			Occupancy: AtomParamID(p.ID, a.Label, "occupancy"),
			ADPType:   a.ADPType,
		}
		if a.ADPType == domain.ADPAnisotropic {
			for _, n := range UaniNames {
				ar.Uani = append(ar.Uani, AtomParamID(p.ID, a.Label, "adp."+n))
			}
		} else {
			ar.Uiso = AtomParamID(p.ID, a.Label, "adp.u_iso")
		}
		rec.Atoms = append(rec.Atoms, ar)
	}
	return rec
}

// FromRecord rebuilds a phase whose parameters are already in store.
func FromRecord(rec domain.PhaseRecord, store *params.Store) (*Phase, error) {
	if !ValidSlug(rec.ID) {
		return nil, domain.Newf(domain.CodeMalformedData, rec.ID, "phase id must match %s", slugPattern)
	}
	g, err := symmetry.Lookup(rec.SpaceGroup, rec.Setting)
	if err != nil {
		return nil, err
	}
	p := &Phase{ID: rec.ID, Name: rec.Name, group: g}
	for _, ar := range rec.Atoms {
		adp := ar.ADPType
		if adp == "" {
			adp = domain.ADPIsotropic
		}
		p.Atoms = append(p.Atoms, Atom{Label: ar.Label, Specie: ar.Specie, ADPType: adp})
	}
	want := p.Record()
	if want.Cell != rec.Cell {
		return nil, domain.Newf(domain.CodeMalformedData, rec.ID, "cell parameter ids do not follow the phase id")
	}
	seen := make(map[string]bool, len(p.Atoms))
	for i, a := range p.Atoms {
		if !ValidSlug(a.Label) || seen[a.Label] {
			return nil, domain.Newf(domain.CodeMalformedData, a.Label, "atom label invalid or repeated in phase %s", rec.ID)
		}
		seen[a.Label] = true
		if !elements.Known(a.Specie) {
			return nil, domain.Newf(domain.CodeUnknownID, a.Specie, "unknown specie on atom %s", a.Label)
		}
		got := rec.Atoms[i]
		exp := want.Atoms[i]
		if got.X != exp.X || got.Y != exp.Y || got.Z != exp.Z || got.Occupancy != exp.Occupancy {
			return nil, domain.Newf(domain.CodeMalformedData, a.Label, "atom parameter ids do not follow the phase id")
		}
	}
	for _, id := range p.ParamIDs() {
		if !store.Has(id) {
			return nil, domain.Newf(domain.CodeUnknownID, id, "phase %s references a missing parameter", rec.ID)
		}
	}
	return p, nil
}
