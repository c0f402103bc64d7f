package cif

import (
	"strconv"
	"time"

	"diffractcore/internal/structure"
	"diffractcore/pkg/domain"
)

// PhaseBlock renders a resolved phase: symmetry, cell, symmetry operations
// and the asymmetric-unit atom sites.
func PhaseBlock(snap structure.Snapshot) *Block {
	b := NewBlock(snap.ID)
	b.Set("_space_group_name_H-M_alt", snap.SpaceGroup)
	if snap.Setting != "" {
		b.Set("_space_group_IT_coordinate_system_code", snap.Setting)
	}
	cell := snap.Cell.Array()
	for i, tag := range cellTags {
		b.Set(tag, Format(cell[i]))
	}

	ops := make([][]string, len(snap.Operations))
	for i, op := range snap.Operations {
		ops[i] = []string{strconv.Itoa(i + 1), op.String()}
	}
	_ = b.AddLoop([]string{"_space_group_symop_id", "_space_group_symop_operation_xyz"}, ops)

	sites := make([][]string, 0, len(snap.Atoms))
	var aniso [][]string
	for _, a := range snap.Atoms {
		sites = append(sites, []string{
			a.Label, a.Specie,
			Format(a.Frac[0]), Format(a.Frac[1]), Format(a.Frac[2]),
			Format(a.Occupancy), a.ADPType, Format(a.Uiso),
			strconv.Itoa(a.Multiplicity),
		})
		if a.ADPType == domain.ADPAnisotropic {
			row := []string{a.Label}
			for _, u := range a.Uani {
				row = append(row, Format(u))
			}
			aniso = append(aniso, row)
		}
	}
	_ = b.AddLoop(atomSiteTags, sites)
	if len(aniso) > 0 {
		_ = b.AddLoop(anisoTags, aniso)
	}
	return b
}

// PhaseDocument wraps PhaseBlock for every snapshot.
func PhaseDocument(snaps ...structure.Snapshot) *Document {
	doc := &Document{}
	for _, s := range snaps {
		doc.Blocks = append(doc.Blocks, PhaseBlock(s))
	}
	return doc
}

// ProjectBlock describes a project: its info and the ids of its phases and
// experiments.
func ProjectBlock(id string, info domain.ProjectInfo, phaseIDs, experimentIDs []string) *Block {
	b := NewBlock(id)
	b.Set("_project_id", id)
	b.Set("_project_name", info.Name)
	if info.ShortDescription != "" {
		b.Set("_project_description", info.ShortDescription)
	}
	b.Set("_project_created", info.CreatedAt.UTC().Format(time.RFC3339))
	b.Set("_project_modified", info.ModifiedAt.UTC().Format(time.RFC3339))
	if len(phaseIDs) > 0 {
		_ = b.AddLoop([]string{"_phase_id"}, column(phaseIDs))
	}
	if len(experimentIDs) > 0 {
		_ = b.AddLoop([]string{"_experiment_id"}, column(experimentIDs))
	}
	return b
}

func column(vals []string) [][]string {
	out := make([][]string, len(vals))
	for i, v := range vals {
		out[i] = []string{v}
	}
	return out
}

var cellTags = [6]string{
	"_cell_length_a", "_cell_length_b", "_cell_length_c",
	"_cell_angle_alpha", "_cell_angle_beta", "_cell_angle_gamma",
}

// CellTags lists the cell data names in a, b, c, α, β, γ order.
func CellTags() [6]string { return cellTags }

var atomSiteTags = []string{
	"_atom_site_label", "_atom_site_type_symbol",
	"_atom_site_fract_x", "_atom_site_fract_y", "_atom_site_fract_z",
	"_atom_site_occupancy", "_atom_site_adp_type", "_atom_site_U_iso_or_equiv",
	"_atom_site_symmetry_multiplicity",
}

var anisoTags = []string{
	"_atom_site_aniso_label",
	"_atom_site_aniso_U_11", "_atom_site_aniso_U_22", "_atom_site_aniso_U_33",
	"_atom_site_aniso_U_12", "_atom_site_aniso_U_13", "_atom_site_aniso_U_23",
}
