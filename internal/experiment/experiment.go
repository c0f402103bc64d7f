// Package experiment models powder diffraction experiments: measured data,
// instrument and profile parameters, background and linked phases.
package experiment

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Defaults applied to a new experiment.
const (
	DefaultName       = "D1A@ILL"
	DefaultWavelength = 1.912
	DefaultScale      = 100.0
	DefaultU          = 0.1447
	DefaultV          = -0.4252
	DefaultW          = 0.3864
)

// DefaultRange is the simulation grid used before data is imported.
var DefaultRange = domain.SimulationRange{Min: 10, Max: 150, Step: 0.1}

// MaxGridPoints caps the length of a simulation grid and of a measured series.
const MaxGridPoints = 1 << 20

// BackgroundPoint anchors the background at a fixed x; the intensity is a
// parameter.
type BackgroundPoint struct {
	X       float64
	ParamID string
}

// PhaseLink attaches a phase with its own scale parameter.
type PhaseLink struct {
	PhaseID string
	ScaleID string
}

// Experiment maps semantic names onto parameter ids and holds measured data.
type Experiment struct {
	ID         string
	Name       string
	Points     []domain.MeasuredPoint
	Background []BackgroundPoint
	Phases     []PhaseLink
	Range      domain.SimulationRange
}

// Instrument holds resolved instrument values.
type Instrument struct {
	Wavelength float64
	ZeroShift  float64
	Scale      float64
	U, V, W    float64
	X, Y       float64
}

type instrumentParam struct {
	attr   string
	value  float64
	bounds params.Bounds
	unit   string
}

var instrumentParams = []instrumentParam{
	{"instrument.wavelength", DefaultWavelength, params.Between(0.01, 100), "Å"},
	{"instrument.zero_shift", 0, params.Unbounded(), "deg"},
	{"pattern.scale", DefaultScale, params.AtLeast(0), ""},
	{"resolution.u", DefaultU, params.Unbounded(), ""},
	{"resolution.v", DefaultV, params.Unbounded(), ""},
	{"resolution.w", DefaultW, params.Unbounded(), ""},
	{"resolution.x", 0, params.Unbounded(), ""},
	{"resolution.y", 0, params.Unbounded(), ""},
}

// ParamID returns the id of an experiment attribute such as
// "instrument.wavelength".
func ParamID(expID, attr string) string {
	return "experiments." + expID + "." + attr
}

// New declares the instrument parameters of a new experiment.
func New(store *params.Store, id, name string) (*Experiment, error) {
	if !slugPattern.MatchString(id) {
		return nil, domain.Newf(domain.CodeMalformedData, id, "experiment id must match %s", slugPattern)
	}
	if name == "" {
		name = DefaultName
	}
	declared := make([]string, 0, len(instrumentParams))
	for _, ip := range instrumentParams {
		pid := ParamID(id, ip.attr)
		if err := store.Declare(pid, ip.value, ip.bounds, false, params.WithUnit(ip.unit)); err != nil {
			_ = store.RemoveAll(declared)
			return nil, err
		}
		declared = append(declared, pid)
	}
	return &Experiment{ID: id, Name: name, Range: DefaultRange}, nil
}

// Clone returns a copy that can be mutated independently.
func (e *Experiment) Clone() *Experiment {
	cp := *e
	cp.Points = append([]domain.MeasuredPoint(nil), e.Points...)
	cp.Background = append([]BackgroundPoint(nil), e.Background...)
	cp.Phases = append([]PhaseLink(nil), e.Phases...)
	return &cp
}

// InstrumentIDs returns the parameter ids of the instrument block.
func (e *Experiment) InstrumentIDs() domain.InstrumentRefs {
	id := func(attr string) string { return ParamID(e.ID, attr) }
	return domain.InstrumentRefs{
		Wavelength: id("instrument.wavelength"),
		ZeroShift:  id("instrument.zero_shift"),
		Scale:      id("pattern.scale"),
		U:          id("resolution.u"),
		V:          id("resolution.v"),
		W:          id("resolution.w"),
		X:          id("resolution.x"),
		Y:          id("resolution.y"),
	}
}

// Instrument resolves the instrument values from the store.
func (e *Experiment) Instrument(store *params.Store) (Instrument, error) {
	refs := e.InstrumentIDs()
	ids := []string{refs.Wavelength, refs.ZeroShift, refs.Scale, refs.U, refs.V, refs.W, refs.X, refs.Y}
	vals := make([]float64, len(ids))
	for i, id := range ids {
		v, err := store.Get(id)
		if err != nil {
			return Instrument{}, err
		}
		vals[i] = v
	}
	return Instrument{
		Wavelength: vals[0], ZeroShift: vals[1], Scale: vals[2],
		U: vals[3], V: vals[4], W: vals[5], X: vals[6], Y: vals[7],
	}, nil
}

// HasData reports whether measured points are loaded.
func (e *Experiment) HasData() bool { return len(e.Points) > 0 }

// ImportMeasured replaces the measured series and derives the simulation
// range from it. x must be non-decreasing; non-finite values and negative
// sigmas are rejected.
func (e *Experiment) ImportMeasured(points []domain.MeasuredPoint) error {
	if len(points) == 0 {
		return domain.Newf(domain.CodeMalformedData, e.ID, "no data points")
	}
	if len(points) > MaxGridPoints {
		return domain.Newf(domain.CodeMalformedData, e.ID, "%d data points exceed the limit of %d", len(points), MaxGridPoints)
	}
	for i, pt := range points {
		if !finite(pt.X) || !finite(pt.Y) || !finite(pt.Sigma) {
			return domain.Newf(domain.CodeMalformedData, e.ID, "point %d is not finite", i)
		}
		if pt.Sigma < 0 {
			return domain.Newf(domain.CodeMalformedData, e.ID, "point %d has negative sigma", i)
		}
		if i > 0 && pt.X < points[i-1].X {
			return domain.Newf(domain.CodeMalformedData, e.ID, "x decreases at point %d", i)
		}
	}
	e.Points = append([]domain.MeasuredPoint(nil), points...)
	e.Range = rangeOf(e.Points)
	return nil
}

// ClearMeasured drops measured data, turning the experiment back into a
// simulation.
func (e *Experiment) ClearMeasured() {
	e.Points = nil
}

func rangeOf(points []domain.MeasuredPoint) domain.SimulationRange {
	r := domain.SimulationRange{Min: points[0].X, Max: points[len(points)-1].X}
	if len(points) > 1 {
		r.Step = (r.Max - r.Min) / float64(len(points)-1)
	}
	return r
}

// SetRange changes the simulation grid. Ranges whose grid would exceed
// MaxGridPoints are rejected.
func (e *Experiment) SetRange(r domain.SimulationRange) error {
	if _, err := gridLen(e.ID, r); err != nil {
		return err
	}
	e.Range = r
	return nil
}

func gridLen(subject string, r domain.SimulationRange) (int, error) {
	if !finite(r.Min) || !finite(r.Max) || !finite(r.Step) || r.Step <= 0 || r.Max < r.Min {
		return 0, domain.Newf(domain.CodeMalformedData, subject, "invalid range %v..%v step %v", r.Min, r.Max, r.Step)
	}
	n := math.Floor((r.Max-r.Min)/r.Step+1e-9) + 1
	if n > MaxGridPoints {
		return 0, domain.Newf(domain.CodeMalformedData, subject, "range %v..%v step %v needs %.0f points, limit is %d", r.Min, r.Max, r.Step, n, MaxGridPoints)
	}
	return int(n), nil
}

// Grid returns the measured x values, or the simulation grid when no data is
// loaded. An invalid range yields no points.
func (e *Experiment) Grid() []float64 {
	if e.HasData() {
		out := make([]float64, len(e.Points))
		for i, p := range e.Points {
			out[i] = p.X
		}
		return out
	}
	r := e.Range
	n, err := gridLen(e.ID, r)
	if err != nil {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*r.Step
	}
	return out
}

// AddBackgroundPoint declares an intensity parameter anchored at x.
func (e *Experiment) AddBackgroundPoint(store *params.Store, x, intensity float64) (string, error) {
	if !finite(x) {
		return "", domain.Newf(domain.CodeNonFiniteValue, e.ID, "background x %v", x)
	}
	for _, b := range e.Background {
		if b.X == x {
			return "", domain.Newf(domain.CodeDuplicateID, e.ID, "background point at x=%v exists", x)
		}
	}
	var id string
	for n := len(e.Background) + 1; ; n++ {
		id = ParamID(e.ID, "background.b"+strconv.Itoa(n)+".intensity")
		if !store.Has(id) {
			break
		}
	}
	if err := store.Declare(id, intensity, params.Unbounded(), false); err != nil {
		return "", err
	}
	e.Background = append(e.Background, BackgroundPoint{X: x, ParamID: id})
	sort.SliceStable(e.Background, func(i, j int) bool { return e.Background[i].X < e.Background[j].X })
	return id, nil
}

// RemoveBackgroundPoint drops the point anchored at x.
func (e *Experiment) RemoveBackgroundPoint(store *params.Store, x float64) error {
	for i, b := range e.Background {
		if b.X != x {
			continue
		}
		if err := store.Remove(b.ParamID); err != nil {
			return err
		}
		e.Background = append(e.Background[:i:i], e.Background[i+1:]...)
		return nil
	}
	return domain.Newf(domain.CodeUnknownID, e.ID, "no background point at x=%v", x)
}

// BackgroundValues resolves the background anchors, ordered by x.
func (e *Experiment) BackgroundValues(store *params.Store) (xs, ys []float64, err error) {
	xs = make([]float64, len(e.Background))
	ys = make([]float64, len(e.Background))
	for i, b := range e.Background {
		xs[i] = b.X
		if ys[i], err = store.Get(b.ParamID); err != nil {
			return nil, nil, err
		}
	}
	return xs, ys, nil
}

// LinkPhase attaches a phase with scale 1.
func (e *Experiment) LinkPhase(store *params.Store, phaseID string) error {
	if e.linkIndex(phaseID) >= 0 {
		return domain.Newf(domain.CodeDuplicateID, phaseID, "phase already linked to %s", e.ID)
	}
	id := ParamID(e.ID, "phases."+phaseID+".scale")
	if err := store.Declare(id, 1, params.AtLeast(0), false); err != nil {
		return err
	}
	e.Phases = append(e.Phases, PhaseLink{PhaseID: phaseID, ScaleID: id})
	return nil
}

// UnlinkPhase detaches a phase and removes its scale parameter.
func (e *Experiment) UnlinkPhase(store *params.Store, phaseID string) error {
	i := e.linkIndex(phaseID)
	if i < 0 {
		return domain.Newf(domain.CodeUnknownID, phaseID, "phase not linked to %s", e.ID)
	}
	if err := store.Remove(e.Phases[i].ScaleID); err != nil {
		return err
	}
	e.Phases = append(e.Phases[:i:i], e.Phases[i+1:]...)
	return nil
}

// Linked reports whether phaseID contributes to the experiment.
func (e *Experiment) Linked(phaseID string) bool { return e.linkIndex(phaseID) >= 0 }

func (e *Experiment) linkIndex(phaseID string) int {
	for i, l := range e.Phases {
		if l.PhaseID == phaseID {
			return i
		}
	}
	return -1
}

// ParamIDs lists every parameter id owned by the experiment.
func (e *Experiment) ParamIDs() []string {
	r := e.InstrumentIDs()
	out := []string{r.Wavelength, r.ZeroShift, r.Scale, r.U, r.V, r.W, r.X, r.Y}
	for _, b := range e.Background {
		out = append(out, b.ParamID)
	}
	for _, l := range e.Phases {
		out = append(out, l.ScaleID)
	}
	return out
}

// Record converts the experiment into its persisted form.
func (e *Experiment) Record() domain.ExperimentRecord {
	rec := domain.ExperimentRecord{
		ID:         e.ID,
		Name:       e.Name,
		Instrument: e.InstrumentIDs(),
		Points:     append([]domain.MeasuredPoint(nil), e.Points...),
		Range:      e.Range,
	}
	for _, b := range e.Background {
		rec.Background = append(rec.Background, domain.BackgroundRecord{X: b.X, Intensity: b.ParamID})
	}
	for _, l := range e.Phases {
		rec.Phases = append(rec.Phases, domain.PhaseLinkRecord{PhaseID: l.PhaseID, Scale: l.ScaleID})
	}
	return rec
}

// FromRecord rebuilds an experiment whose parameters are already in store.
func FromRecord(rec domain.ExperimentRecord, store *params.Store) (*Experiment, error) {
	if !slugPattern.MatchString(rec.ID) {
		return nil, domain.Newf(domain.CodeMalformedData, rec.ID, "experiment id must match %s", slugPattern)
	}
	e := &Experiment{ID: rec.ID, Name: rec.Name, Range: rec.Range}
	if rec.Instrument != e.InstrumentIDs() {
		return nil, domain.Newf(domain.CodeMalformedData, rec.ID, "instrument parameter ids do not follow the experiment id")
	}
	if len(rec.Points) > 0 {
		if err := e.ImportMeasured(rec.Points); err != nil {
			return nil, err
		}
		e.Range = rec.Range
	} else if err := e.SetRange(rec.Range); err != nil {
		return nil, err
	}
	for _, b := range rec.Background {
		e.Background = append(e.Background, BackgroundPoint{X: b.X, ParamID: b.Intensity})
	}
	sort.SliceStable(e.Background, func(i, j int) bool { return e.Background[i].X < e.Background[j].X })
	for _, l := range rec.Phases {
		e.Phases = append(e.Phases, PhaseLink{PhaseID: l.PhaseID, ScaleID: l.Scale})
	}
	for _, id := range e.ParamIDs() {
		if !store.Has(id) {
			return nil, domain.Newf(domain.CodeUnknownID, id, "experiment %s references a missing parameter", rec.ID)
		}
	}
	return e, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
