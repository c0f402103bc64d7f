package domain

import "time"

// DocumentSchemaVersion is the version written into every ProjectDocument.
const DocumentSchemaVersion = 1

// ProjectDocument is the persisted form of a project. Cross references are by
// identifier: phases and experiments point at parameters through ids held in
// Parameters, and experiments point at phases through PhaseLinkRecord.PhaseID.
type ProjectDocument struct {
	SchemaVersion int                `json:"schema_version"`
	ID            string             `json:"id"`
	Info          ProjectInfo        `json:"info"`
	Parameters    []ParameterRecord  `json:"parameters"`
	Phases        []PhaseRecord      `json:"phases"`
	Experiments   []ExperimentRecord `json:"experiments"`
	Fit           FitConfig          `json:"fit"`
	LastFit       *FitSummary        `json:"last_fit,omitempty"`
}

// ProjectInfo carries descriptive project metadata.
type ProjectInfo struct {
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ModifiedAt       time.Time `json:"modified_at"`
}

// ProjectSummary is the listing view returned by repositories.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Summary derives the listing view of the document.
func (d ProjectDocument) Summary() ProjectSummary {
	return ProjectSummary{ID: d.ID, Name: d.Info.Name, ModifiedAt: d.Info.ModifiedAt}
}

// ParameterRecord is the persisted form of a parameter.
type ParameterRecord struct {
	ID         string   `json:"id"`
	Value      float64  `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Free       bool     `json:"free"`
	Constraint string   `json:"constraint,omitempty"`
}

// PhaseRecord describes a structure model.
type PhaseRecord struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	SpaceGroup string       `json:"space_group"`
	Setting    string       `json:"setting,omitempty"`
	Cell       CellRefs     `json:"cell"`
	Atoms      []AtomRecord `json:"atoms"`
}

// CellRefs holds the parameter ids of the unit cell.
type CellRefs struct {
	A     string `json:"length_a"`
	B     string `json:"length_b"`
	C     string `json:"length_c"`
	Alpha string `json:"angle_alpha"`
	Beta  string `json:"angle_beta"`
	Gamma string `json:"angle_gamma"`
}

// ADP types.
const (
	ADPIsotropic   = "Uiso"
	ADPAnisotropic = "Uani"
)

// AtomRecord describes an atom site; every numeric attribute is a parameter id.
type AtomRecord struct {
	Label     string   `json:"label"`
	Specie    string   `json:"type_symbol"`
	X         string   `json:"fract_x"`
	Y         string   `json:"fract_y"`
	Z         string   `json:"fract_z"`
	Occupancy string   `json:"occupancy"`
	ADPType   string   `json:"adp_type"`
	Uiso      string   `json:"u_iso,omitempty"`
	Uani      []string `json:"u_aniso,omitempty"`
}

// ExperimentRecord describes an experiment model.
type ExperimentRecord struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Instrument InstrumentRefs     `json:"instrument"`
	Points     []MeasuredPoint    `json:"points,omitempty"`
	Background []BackgroundRecord `json:"background,omitempty"`
	Phases     []PhaseLinkRecord  `json:"phases,omitempty"`
	Range      SimulationRange    `json:"range"`
}

// InstrumentRefs holds the parameter ids of the instrument and profile.
type InstrumentRefs struct {
	Wavelength string `json:"wavelength"`
	ZeroShift  string `json:"zero_shift"`
	Scale      string `json:"scale"`
	U          string `json:"resolution_u"`
	V          string `json:"resolution_v"`
	W          string `json:"resolution_w"`
	X          string `json:"resolution_x"`
	Y          string `json:"resolution_y"`
}

// MeasuredPoint is one (x, y, sigma) triple.
type MeasuredPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Sigma float64 `json:"e"`
}

// BackgroundRecord is a background anchor at a fixed x.
type BackgroundRecord struct {
	X         float64 `json:"x"`
	Intensity string  `json:"intensity"`
}

// PhaseLinkRecord references a phase contributing to an experiment.
type PhaseLinkRecord struct {
	PhaseID string `json:"phase_id"`
	Scale   string `json:"scale"`
}

// SimulationRange is the x grid used when an experiment has no measured data.
type SimulationRange struct {
	Min  float64 `json:"x_min"`
	Max  float64 `json:"x_max"`
	Step float64 `json:"x_step"`
}

// FitConfig selects the minimizer and its convergence settings.
type FitConfig struct {
	Method             string  `json:"method" yaml:"method"`
	MaxIterations      int     `json:"max_iterations" yaml:"max_iterations"`
	Tolerance          float64 `json:"tolerance" yaml:"tolerance"`
	ParameterTolerance float64 `json:"parameter_tolerance" yaml:"parameter_tolerance"`
	Patience           int     `json:"patience" yaml:"patience"`
}

// FitSummary records the outcome of the last completed fit.
type FitSummary struct {
	RunID            string             `json:"run_id"`
	State            string             `json:"state"`
	Success          bool               `json:"success"`
	Method           string             `json:"method"`
	Iterations       int                `json:"iterations"`
	NVarys           int                `json:"nvarys"`
	NPoints          int                `json:"npoints"`
	ChiSquare        float64            `json:"chi2"`
	ReducedChiSquare float64            `json:"redchi2"`
	GoodnessOfFit    float64            `json:"gof"`
	Uncertainties    map[string]float64 `json:"uncertainties,omitempty"`
	LastChanged      []string           `json:"last_changed,omitempty"`
	Message          string             `json:"message,omitempty"`
	FinishedAt       time.Time          `json:"finished_at"`
}
