package structure

import (
	"diffractcore/internal/lattice"
	"diffractcore/internal/params"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

// Snapshot is a phase resolved against the parameter store: plain numbers
// only, safe to hand to the calculator.
type Snapshot struct {
	ID         string
	Name       string
	SpaceGroup string
	Setting    string
	Cell       lattice.Cell
	Operations []symmetry.Op
	Atoms      []SiteSnapshot
	Sites      []symmetry.Site
}

// SiteSnapshot is one representative site with its orbit size.
type SiteSnapshot struct {
	symmetry.Site
	ADPType      string
	Uani         [6]float64
	Multiplicity int
}

// Snapshot reads every parameter of the phase and expands the atoms with the
// space-group operations.
func (p *Phase) Snapshot(store *params.Store) (Snapshot, error) {
	values, err := p.CellValues(store)
	if err != nil {
		return Snapshot{}, err
	}
	cell := lattice.FromArray(values)
	recip := cell.Reciprocal()
	ops := p.group.Operations()

	snap := Snapshot{
		ID:         p.ID,
		Name:       p.Name,
		SpaceGroup: p.group.Symbol,
		Setting:    p.group.Setting,
		Cell:       cell,
		Operations: ops,
		Atoms:      make([]SiteSnapshot, 0, len(p.Atoms)),
	}
	reps := make([]symmetry.Site, 0, len(p.Atoms))
	for _, a := range p.Atoms {
		ids := p.atomParamIDs(a)
		vals := make([]float64, len(ids))
		for k, id := range ids {
			if vals[k], err = store.Get(id); err != nil {
				return Snapshot{}, domain.Wrap(domain.CodeUnknownID, id, err)
			}
		}
		site := symmetry.Site{
			Label:     a.Label,
			Specie:    a.Specie,
			Frac:      [3]float64{vals[0], vals[1], vals[2]},
			Occupancy: vals[3],
		}
		ss := SiteSnapshot{ADPType: a.ADPType}
		if a.ADPType == domain.ADPAnisotropic {
			copy(ss.Uani[:], vals[4:10])
			beta := recip.UToBeta(ss.Uani)
			site.Beta = &beta
			site.Uiso = cell.Ueq(ss.Uani)
		} else {
			site.Uiso = vals[4]
		}
		ss.Site = site
		ss.Multiplicity = symmetry.Multiplicity(ops, site.Frac, symmetry.DefaultTolerance)
		snap.Atoms = append(snap.Atoms, ss)
		reps = append(reps, site)
	}
	snap.Sites = symmetry.Expand(ops, reps, symmetry.DefaultTolerance)
	return snap, nil
}
