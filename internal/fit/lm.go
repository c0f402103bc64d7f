package fit

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"diffractcore/internal/params"
	"diffractcore/pkg/domain"
)

const (
	lambdaInit = 1e-3
	lambdaMin  = 1e-12
	lambdaMax  = 1e12
)

// outcome is what a minimizer hands back to the engine.
type outcome struct {
	state       State
	x           []float64
	chi2        float64
	iterations  int
	lastChanged []string
	message     string
}

type runner struct {
	ev    *evaluator
	cfg   domain.FitConfig
	live  *params.Store
	runID string
	emit  func(Progress)
}

func (r *runner) progress(iter int, chi2 float64) {
	r.emit(Progress{
		RunID:            r.runID,
		State:            Running,
		Iteration:        iter,
		ChiSquare:        chi2,
		ReducedChiSquare: r.reduced(chi2),
	})
}

func (r *runner) reduced(chi2 float64) float64 {
	dof := r.ev.n - len(r.ev.ids)
	if dof < 1 {
		dof = 1
	}
	return chi2 / float64(dof)
}

// stop converts an evaluation error into a terminal outcome.
func (r *runner) stop(ctx context.Context, err error, good, trial []float64, chi2 float64, iter int) outcome {
	out := outcome{x: good, chi2: chi2, iterations: iter}
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		out.state = Cancelled
		out.message = "cancelled"
	case errors.Is(err, errNonFinite):
		out.state = Failed
		out.lastChanged = r.ev.changed(good, trial)
		if len(out.lastChanged) == 0 {
			out.lastChanged = append([]string(nil), r.ev.ids...)
		}
		out.message = err.Error()
	default:
		out.state = Failed
		out.message = err.Error()
	}
	return out
}

// jacobian fills jac with forward differences of the residuals around x.
// Steps that would leave the bounds are taken backwards.
func (r *runner) jacobian(ctx context.Context, x, res []float64, jac *mat.Dense) ([]float64, error) {
	probe := make([]float64, r.ev.n)
	for j := range x {
		h := 1e-6 * math.Max(math.Abs(x[j]), 1e-3)
		xp := append([]float64(nil), x...)
		xp[j] = x[j] + h
		if r.ev.bounds[j].Clip(xp[j]) != xp[j] {
			h = -h
			xp[j] = x[j] + h
		}
		if err := r.ev.residuals(ctx, xp, probe); err != nil {
			return xp, err
		}
		for i := range probe {
			jac.Set(i, j, (probe[i]-res[i])/h)
		}
	}
	return nil, nil
}

// levenbergMarquardt minimizes the sum of squared residuals with a damped
// Gauss–Newton step on a finite-difference Jacobian.
func (r *runner) levenbergMarquardt(ctx context.Context, x0 []float64) outcome {
	ev := r.ev
	m, n := len(ev.ids), ev.n
	x := ev.clip(x0)
	res := make([]float64, n)
	if err := ev.residuals(ctx, x, res); err != nil {
		return r.stop(ctx, err, x0, x, math.NaN(), 0)
	}
	chi2 := sumSquares(res)
	if chi2 == 0 {
		return outcome{state: Converged, x: x, chi2: 0, message: "exact fit"}
	}

	lambda := lambdaInit
	calm := 0
	jac := mat.NewDense(n, m, nil)
	trialRes := make([]float64, n)
	for iter := 1; iter <= r.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return r.stop(ctx, err, x, x, chi2, iter-1)
		}
		if probe, err := r.jacobian(ctx, x, res, jac); err != nil {
			return r.stop(ctx, err, x, probe, chi2, iter-1)
		}
		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(n, res))
		grad.ScaleVec(-1, &grad)

		var trial []float64
		trialChi2 := math.Inf(1)
		for lambda <= lambdaMax {
			a := mat.NewDense(m, m, nil)
			a.Copy(&jtj)
			for j := 0; j < m; j++ {
				a.Set(j, j, jtj.At(j, j)+lambda*math.Max(jtj.At(j, j), 1e-12))
			}
			var delta mat.VecDense
			if err := delta.SolveVec(a, &grad); err != nil {
				lambda *= 10
				continue
			}
			cand := make([]float64, m)
			for j := range cand {
				cand[j] = x[j] + delta.AtVec(j)
			}
			cand = ev.clip(cand)
			if err := ev.residuals(ctx, cand, trialRes); err != nil {
				return r.stop(ctx, err, x, cand, chi2, iter)
			}
			if c := sumSquares(trialRes); c < chi2 {
				trial, trialChi2 = cand, c
				break
			}
			lambda *= 10
		}
		if trial == nil {
			return outcome{state: Converged, x: x, chi2: chi2, iterations: iter, message: "no downhill step at maximum damping"}
		}

		relChange := (chi2 - trialChi2) / chi2
		step := floats.Distance(trial, x, 2) / (floats.Norm(x, 2) + 1e-12)
		x, chi2 = trial, trialChi2
		copy(res, trialRes)
		if err := ev.commit(r.live, x); err != nil {
			return r.stop(ctx, err, x, x, chi2, iter)
		}
		r.progress(iter, chi2)
		lambda = math.Max(lambda/10, lambdaMin)

		if relChange < r.cfg.Tolerance {
			calm++
		} else {
			calm = 0
		}
		switch {
		case chi2 == 0:
			return outcome{state: Converged, x: x, chi2: chi2, iterations: iter, message: "exact fit"}
		case calm >= r.cfg.Patience:
			return outcome{state: Converged, x: x, chi2: chi2, iterations: iter, message: "chi-square change below tolerance"}
		case step < r.cfg.ParameterTolerance:
			return outcome{state: Converged, x: x, chi2: chi2, iterations: iter, message: "parameter step below tolerance"}
		}
	}
	return outcome{state: MaxIterationsReached, x: x, chi2: chi2, iterations: r.cfg.MaxIterations, message: "iteration limit reached"}
}

// uncertainties estimates standard errors from the covariance
// (JᵀJ)⁻¹ scaled by the reduced chi-square.
func (r *runner) uncertainties(ctx context.Context, x []float64, chi2 float64) map[string]float64 {
	ev := r.ev
	res := make([]float64, ev.n)
	if err := ev.residuals(ctx, x, res); err != nil {
		return nil
	}
	jac := mat.NewDense(ev.n, len(x), nil)
	if _, err := r.jacobian(ctx, x, res, jac); err != nil {
		return nil
	}
	var jtj mat.SymDense
	jtj.SymOuterK(1, jac.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&jtj); !ok {
		return nil
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil
	}
	scale := r.reduced(chi2)
	out := make(map[string]float64, len(x))
	for j, id := range ev.ids {
		v := cov.At(j, j) * scale
		if v >= 0 && !math.IsInf(v, 0) {
			out[id] = math.Sqrt(v)
		}
	}
	return out
}
