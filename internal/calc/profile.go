package calc

import (
	"math"
	"sort"
)

// minGaussianVariance floors H_G² so that a pathological U,V,W set still
// yields a peak of finite height.
const minGaussianVariance = 1e-8

func widths(in Input, tth float64) (hg, hl float64) {
	theta := (tth - in.ZeroShift) / 2 * math.Pi / 180
	tan := math.Tan(theta)
	hg2 := in.U*tan*tan + in.V*tan + in.W
	if hg2 < minGaussianVariance {
		hg2 = minGaussianVariance
	}
	hl = in.X*tan + in.Y/math.Cos(theta)
	if hl < 0 {
		hl = 0
	}
	return math.Sqrt(hg2), hl
}

// FWHM returns the Thompson–Cox–Hastings pseudo-Voigt width at 2θ, in degrees.
func FWHM(in Input, tth float64) float64 {
	hg, hl := widths(in, tth)
	return tchWidth(hg, hl)
}

func tchWidth(hg, hl float64) float64 {
	g2, l2 := hg*hg, hl*hl
	h5 := g2*g2*hg +
		2.69269*g2*g2*hl +
		2.42843*g2*hg*l2 +
		4.47163*g2*l2*hl +
		0.07842*hg*l2*l2 +
		l2*l2*hl
	return math.Pow(h5, 0.2)
}

func mixing(in Input, tth float64) float64 {
	hg, hl := widths(in, tth)
	h := tchWidth(hg, hl)
	if h <= 0 {
		return 0
	}
	q := hl / h
	eta := 1.36603*q - 0.47719*q*q + 0.11116*q*q*q
	return math.Max(0, math.Min(1, eta))
}

// PseudoVoigt evaluates an area-normalized pseudo-Voigt at offset dx from
// the peak center.
func PseudoVoigt(dx, fwhm, eta float64) float64 {
	r := dx / fwhm
	gauss := 2 / fwhm * math.Sqrt(math.Ln2/math.Pi) * math.Exp(-4*math.Ln2*r*r)
	lorentz := 2 / (math.Pi * fwhm) / (1 + 4*r*r)
	return eta*lorentz + (1-eta)*gauss
}

func addPeak(dst, grid []float64, center, fwhm, eta, intensity float64) {
	if !(fwhm > 0) {
		return
	}
	half := windowFWHM / 2 * fwhm
	start := sort.SearchFloat64s(grid, center-half)
	for i := start; i < len(grid) && grid[i] <= center+half; i++ {
		dst[i] += intensity * PseudoVoigt(grid[i]-center, fwhm, eta)
	}
}

// Background interpolates linearly between anchor points and is constant
// beyond the outermost ones. xs must be sorted.
func Background(grid, xs, ys []float64) []float64 {
	out := make([]float64, len(grid))
	if len(xs) == 0 {
		return out
	}
	last := len(xs) - 1
	for i, x := range grid {
		switch {
		case x <= xs[0]:
			out[i] = ys[0]
		case x >= xs[last]:
			out[i] = ys[last]
		default:
			j := sort.SearchFloat64s(xs, x)
			if xs[j] == x {
				out[i] = ys[j]
				continue
			}
			x0, x1 := xs[j-1], xs[j]
			out[i] = ys[j-1] + (ys[j]-ys[j-1])*(x-x0)/(x1-x0)
		}
	}
	return out
}
