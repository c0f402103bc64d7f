// Package calc computes constant-wavelength powder diffraction patterns.
//
// Calculate is a pure function of its input: it keeps no state between
// calls, iterates in a fixed order and uses no randomness, so equal inputs
// produce bit-identical patterns. Nonphysical parameter values never produce
// an error; the resulting pattern may contain non-finite numbers and callers
// decide what to do with them.
package calc

import (
	"math"
	"sort"

	"diffractcore/internal/elements"
	"diffractcore/internal/lattice"
	"diffractcore/internal/symmetry"
	"diffractcore/pkg/domain"
)

// maxReflections bounds the hkl box searched for one phase.
const maxReflections = 4_000_000

// windowFWHM is the width of the profile window in FWHM units.
const windowFWHM = 30.0

// PhaseInput is one phase resolved to plain numbers. Sites must be the full
// unit-cell content (already expanded by symmetry).
type PhaseInput struct {
	ID    string
	Scale float64
	Cell  lattice.Cell
	Sites []symmetry.Site
}

// Input is everything needed to simulate one experiment.
type Input struct {
	Wavelength  float64
	ZeroShift   float64
	Scale       float64
	U, V, W     float64
	X, Y        float64
	BackgroundX []float64
	BackgroundY []float64
	Grid        []float64
	Phases      []PhaseInput
}

// Reflection is a Bragg peak. Reflections at the same d are merged;
// Multiplicity counts them and HKL is the first one enumerated.
type Reflection struct {
	PhaseID      string  `json:"phase_id"`
	HKL          [3]int  `json:"hkl"`
	D            float64 `json:"d"`
	TwoTheta     float64 `json:"two_theta"`
	F2           float64 `json:"f2"`
	Multiplicity int     `json:"multiplicity"`
	Intensity    float64 `json:"intensity"`
	FWHM         float64 `json:"fwhm"`
}

// Pattern is a simulated profile on the input grid.
type Pattern struct {
	X           []float64    `json:"x"`
	Total       []float64    `json:"total"`
	Background  []float64    `json:"background"`
	PerPhase    [][]float64  `json:"per_phase"`
	Reflections []Reflection `json:"reflections"`
}

// Engine computes patterns. Alternative engines can be registered through
// plugins.
type Engine interface {
	Name() string
	Calculate(in Input) (Pattern, error)
}

// NeutronCW is the built-in constant-wavelength neutron engine.
type NeutronCW struct{}

// Name implements Engine.
func (NeutronCW) Name() string { return "neutron-cw" }

// Calculate implements Engine.
func (NeutronCW) Calculate(in Input) (Pattern, error) { return Calculate(in) }

// Calculate simulates the pattern for in.
func Calculate(in Input) (Pattern, error) {
	if len(in.Grid) == 0 {
		return Pattern{}, domain.Newf(domain.CodeNoData, "", "empty x grid")
	}
	if len(in.BackgroundX) != len(in.BackgroundY) {
		return Pattern{}, domain.Newf(domain.CodeMalformedData, "", "background has %d x and %d y values", len(in.BackgroundX), len(in.BackgroundY))
	}
	n := len(in.Grid)
	out := Pattern{
		X:          append([]float64(nil), in.Grid...),
		Total:      make([]float64, n),
		Background: Background(in.Grid, in.BackgroundX, in.BackgroundY),
		PerPhase:   make([][]float64, len(in.Phases)),
	}
	copy(out.Total, out.Background)

	for pi, ph := range in.Phases {
		refl, err := reflections(in, ph)
		if err != nil {
			return Pattern{}, err
		}
		contrib := make([]float64, n)
		for _, r := range refl {
			addPeak(contrib, in.Grid, r.TwoTheta, r.FWHM, mixing(in, r.TwoTheta), r.Intensity)
		}
		for i, v := range contrib {
			out.Total[i] += v
		}
		out.PerPhase[pi] = contrib
		out.Reflections = append(out.Reflections, refl...)
	}
	return out, nil
}

type rawRefl struct {
	hkl [3]int
	d   float64
	f2  float64
}

func reflections(in Input, ph PhaseInput) ([]Reflection, error) {
	recip := ph.Cell.Reciprocal()
	if !recip.Valid {
		return nil, domain.Newf(domain.CodeNonFiniteOutput, ph.ID, "cell %v has no volume", ph.Cell.Array())
	}
	lengths := make([]float64, len(ph.Sites))
	for i, s := range ph.Sites {
		b, err := elements.ScatteringLength(s.Specie)
		if err != nil {
			return nil, err
		}
		lengths[i] = b
	}
	if in.Wavelength <= 0 || len(ph.Sites) == 0 {
		return nil, nil
	}

	lo, hi := in.Grid[0], in.Grid[len(in.Grid)-1]
	thetaMax := math.Min(90, (hi-in.ZeroShift)/2+10)
	if thetaMax <= 0 {
		return nil, nil
	}
	dMin := in.Wavelength / (2 * math.Sin(thetaMax*math.Pi/180))
	hmax := [3]int{
		int(ph.Cell.A / dMin), int(ph.Cell.B / dMin), int(ph.Cell.C / dMin),
	}
	box := float64(2*hmax[0]+1) * float64(2*hmax[1]+1) * float64(2*hmax[2]+1)
	if box > maxReflections {
		return nil, domain.Newf(domain.CodeNonFiniteOutput, ph.ID, "reflection search box of %.0f exceeds %d", box, maxReflections)
	}

	var raw []rawRefl
	invDMin2 := 1 / (dMin * dMin)
	for h := -hmax[0]; h <= hmax[0]; h++ {
		for k := -hmax[1]; k <= hmax[1]; k++ {
			for l := -hmax[2]; l <= hmax[2]; l++ {
				if h == 0 && k == 0 && l == 0 {
					continue
				}
				hv := [3]float64{float64(h), float64(k), float64(l)}
				q := recip.InvD2(hv)
				if q > invDMin2 || q <= 0 {
					continue
				}
				f2 := structureFactor2(hv, q, ph.Sites, lengths)
				if f2 < 1e-12 {
					continue
				}
				raw = append(raw, rawRefl{hkl: [3]int{h, k, l}, d: 1 / math.Sqrt(q), f2: f2})
			}
		}
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].d > raw[j].d })

	var out []Reflection
	for i := 0; i < len(raw); {
		j := i + 1
		sum := raw[i].f2
		for j < len(raw) && raw[i].d-raw[j].d <= 1e-9*raw[i].d {
			sum += raw[j].f2
			j++
		}
		r, mult := raw[i], j-i
		i = j
		sinT := in.Wavelength / (2 * r.d)
		if sinT >= 1 {
			continue
		}
		theta := math.Asin(sinT)
		tth := 2*theta*180/math.Pi + in.ZeroShift
		fwhm := FWHM(in, tth)
		if tth+windowFWHM/2*fwhm < lo || tth-windowFWHM/2*fwhm > hi {
			continue
		}
		lorentz := 1 / (sinT * sinT * math.Cos(theta))
		out = append(out, Reflection{
			PhaseID:      ph.ID,
			HKL:          r.hkl,
			D:            r.d,
			TwoTheta:     tth,
			F2:           r.f2,
			Multiplicity: mult,
			Intensity:    in.Scale * ph.Scale * sum * lorentz,
			FWHM:         fwhm,
		})
	}
	return out, nil
}

// structureFactor2 returns |F(hkl)|² over the unit-cell content.
func structureFactor2(h [3]float64, invD2 float64, sites []symmetry.Site, lengths []float64) float64 {
	s2 := invD2 / 4
	var re, im float64
	for i, s := range sites {
		phase := 2 * math.Pi * (h[0]*s.Frac[0] + h[1]*s.Frac[1] + h[2]*s.Frac[2])
		var t float64
		if s.Beta != nil {
			b := s.Beta
			t = math.Exp(-(b[0]*h[0]*h[0] + b[1]*h[1]*h[1] + b[2]*h[2]*h[2] +
				2*b[3]*h[0]*h[1] + 2*b[4]*h[0]*h[2] + 2*b[5]*h[1]*h[2]))
		} else {
			t = math.Exp(-8 * math.Pi * math.Pi * s.Uiso * s2)
		}
		amp := lengths[i] * s.Occupancy * t
		sin, cos := math.Sincos(phase)
		re += amp * cos
		im += amp * sin
	}
	return re*re + im*im
}
