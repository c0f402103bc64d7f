// Package importer turns external descriptions into validated records ready
// for the project: structures from CIF text and measured patterns from XYE
// tables. Nothing here touches a project; failures are ImportError.
package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"diffractcore/internal/cif"
	"diffractcore/internal/elements"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

var (
	validate    *validator.Validate
	slugPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("specie", func(fl validator.FieldLevel) bool {
		return elements.Known(fl.Field().String())
	})
	_ = validate.RegisterValidation("spacegroup", func(fl validator.FieldLevel) bool {
		_, err := symmetry.Lookup(fl.Field().String(), fl.Parent().FieldByName("Setting").String())
		return err == nil
	})
}

// StructureRecord is a crystal structure described by an external loader.
type StructureRecord struct {
	Name       string       `json:"name" validate:"required,slug"`
	SpaceGroup string       `json:"space_group" validate:"required,spacegroup"`
	Setting    string       `json:"setting,omitempty"`
	LengthA    float64      `json:"length_a" validate:"gt=0"`
	LengthB    float64      `json:"length_b" validate:"gt=0"`
	LengthC    float64      `json:"length_c" validate:"gt=0"`
	Alpha      float64      `json:"angle_alpha" validate:"gt=0,lt=180"`
	Beta       float64      `json:"angle_beta" validate:"gt=0,lt=180"`
	Gamma      float64      `json:"angle_gamma" validate:"gt=0,lt=180"`
	Atoms      []AtomRecord `json:"atoms" validate:"unique=Label,dive"`
}

// AtomRecord is one asymmetric-unit site.
type AtomRecord struct {
	Label     string     `json:"label" validate:"required,slug"`
	Specie    string     `json:"type_symbol" validate:"required,specie"`
	X         float64    `json:"fract_x"`
	Y         float64    `json:"fract_y"`
	Z         float64    `json:"fract_z"`
	Occupancy float64    `json:"occupancy"`
	ADPType   string     `json:"adp_type" validate:"oneof=Uiso Uani"`
	Uiso      float64    `json:"u_iso"`
	Uani      [6]float64 `json:"u_aniso"`
}

// Cell returns a, b, c, α, β, γ.
func (r StructureRecord) Cell() [6]float64 {
	return [6]float64{r.LengthA, r.LengthB, r.LengthC, r.Alpha, r.Beta, r.Gamma}
}

// Validate checks the record, reporting the first problem as ImportError.
func (r StructureRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			fe := errs[0]
			return domain.Newf(domain.CodeImportError, r.Name, "%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return domain.Wrap(domain.CodeImportError, r.Name, err)
	}
	return nil
}

// FromCIF reads every data block of a CIF document as a structure.
func FromCIF(r io.Reader) ([]StructureRecord, error) {
	doc, err := cif.Parse(r)
	if err != nil {
		return nil, domain.Wrap(domain.CodeImportError, "cif", err)
	}
	if len(doc.Blocks) == 0 {
		return nil, domain.Newf(domain.CodeImportError, "cif", "no data blocks")
	}
	out := make([]StructureRecord, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		rec, err := recordFromBlock(b)
		if err != nil {
			return nil, err
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordFromBlock(b *cif.Block) (StructureRecord, error) {
	fail := func(format string, args ...any) (StructureRecord, error) {
		return StructureRecord{}, domain.Newf(domain.CodeImportError, b.Name, format, args...)
	}
	rec := StructureRecord{Name: b.Name}
	sg, ok := b.FirstValue("_space_group_name_H-M_alt", "_symmetry_space_group_name_H-M", "_space_group_IT_number", "_symmetry_Int_Tables_number")
	if !ok {
		return fail("no space group")
	}
	rec.SpaceGroup = sg
	if setting, ok := b.FirstValue("_space_group_IT_coordinate_system_code"); ok {
		rec.Setting = setting
	}
	cell := []*float64{&rec.LengthA, &rec.LengthB, &rec.LengthC, &rec.Alpha, &rec.Beta, &rec.Gamma}
	for i, tag := range cif.CellTags() {
		raw, ok := b.Value(tag)
		if !ok {
			return fail("missing %s", tag)
		}
		v, err := cif.Number(raw)
		if err != nil {
			return fail("%s: %v", tag, err)
		}
		*cell[i] = v
	}

	loop, ok := b.Loop("_atom_site_label")
	if !ok {
		return rec, nil
	}
	labels := loop.Column("_atom_site_label")
	species := loop.Column("_atom_site_type_symbol")
	xs, ys, zs := loop.Column("_atom_site_fract_x"), loop.Column("_atom_site_fract_y"), loop.Column("_atom_site_fract_z")
	if xs == nil || ys == nil || zs == nil {
		return fail("atom_site loop lacks fractional coordinates")
	}
	occ := loop.Column("_atom_site_occupancy")
	uiso := loop.Column("_atom_site_U_iso_or_equiv")
	adp := loop.Column("_atom_site_adp_type")

	index := make(map[string]int, len(labels))
	for i, label := range labels {
		a := AtomRecord{Label: label, Occupancy: 1, ADPType: domain.ADPIsotropic}
		if species != nil {
			a.Specie = species[i]
		} else {
			a.Specie = specieFromLabel(label)
		}
		var err error
		if a.X, err = cif.Number(xs[i]); err != nil {
			return fail("atom %s fract_x: %v", label, err)
		}
		if a.Y, err = cif.Number(ys[i]); err != nil {
			return fail("atom %s fract_y: %v", label, err)
		}
		if a.Z, err = cif.Number(zs[i]); err != nil {
			return fail("atom %s fract_z: %v", label, err)
		}
		if occ != nil {
			if a.Occupancy, err = optionalNumber(occ[i], 1); err != nil {
				return fail("atom %s occupancy: %v", label, err)
			}
		}
		if uiso != nil {
			if a.Uiso, err = optionalNumber(uiso[i], 0); err != nil {
				return fail("atom %s U_iso: %v", label, err)
			}
		}
		if adp != nil && strings.EqualFold(adp[i], domain.ADPAnisotropic) {
			a.ADPType = domain.ADPAnisotropic
		}
		index[label] = len(rec.Atoms)
		rec.Atoms = append(rec.Atoms, a)
	}

	if aniso, ok := b.Loop("_atom_site_aniso_label"); ok {
		names := []string{"_atom_site_aniso_U_11", "_atom_site_aniso_U_22", "_atom_site_aniso_U_33",
			"_atom_site_aniso_U_12", "_atom_site_aniso_U_13", "_atom_site_aniso_U_23"}
		cols := make([][]string, len(names))
		for k, n := range names {
			if cols[k] = aniso.Column(n); cols[k] == nil {
				return fail("aniso loop lacks %s", n)
			}
		}
		for row, label := range aniso.Column("_atom_site_aniso_label") {
			i, ok := index[label]
			if !ok {
				return fail("aniso entry for unknown atom %s", label)
			}
			for k := range names {
				v, err := cif.Number(cols[k][row])
				if err != nil {
					return fail("atom %s %s: %v", label, names[k], err)
				}
				rec.Atoms[i].Uani[k] = v
			}
			rec.Atoms[i].ADPType = domain.ADPAnisotropic
		}
	}
	return rec, nil
}

func optionalNumber(raw string, def float64) (float64, error) {
	v, err := cif.Number(raw)
	if errors.Is(err, cif.ErrUnknownValue) {
		return def, nil
	}
	return v, err
}

// specieFromLabel takes the leading letters of a site label ("Cl1" → "Cl").
func specieFromLabel(label string) string {
	end := 0
	for end < len(label) && end < 2 && unicode.IsLetter(rune(label[end])) {
		end++
	}
	s := label[:end]
	if len(s) == 2 && !elements.Known(s) {
		s = s[:1]
	}
	return s
}

// String renders a one-line description for logs.
func (r StructureRecord) String() string {
	return fmt.Sprintf("%s (%s, %d atoms)", r.Name, r.SpaceGroup, len(r.Atoms))
}
