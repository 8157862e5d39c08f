package optimization

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// LocalMethod selects the gonum method behind a LocalSearcher.
type LocalMethod string

const (
	MethodLBFGS      LocalMethod = "lbfgs"
	MethodNelderMead LocalMethod = "nelder-mead"
)

const (
	defaultGradientThreshold = 1e-7
	defaultFDStep            = 1e-4
	// boundEpsilon keeps the logistic transform away from its asymptotes.
	boundEpsilon = 1e-6
	// maxIntegerStep caps the widened step near the bounds, where the
	// logistic slope vanishes.
	maxIntegerStep = 10.0
)

// LocalConfig tunes a LocalSearcher.
type LocalConfig struct {
	Method LocalMethod
	// Initial is the starting point. Nil means the centre of the space.
	Initial Point
	// GradientThreshold stops L-BFGS once the gradient norm drops below it.
	GradientThreshold float64
	// Step is the finite-difference step for real parameters in the unbounded
	// coordinates. Integer parameters widen it to at least one unit.
	Step float64
}

// LocalSearcher refines a starting point with a derivative-based (L-BFGS with
// central finite differences) or derivative-free (Nelder-Mead) method. Bounds
// are enforced by optimizing over unbounded coordinates u with
// x = min + width*sigmoid(u). Evaluations run sequentially.
type LocalSearcher struct {
	opts Options
	cfg  LocalConfig
}

// NewLocalSearcher creates a local searcher. Zero config fields take defaults.
func NewLocalSearcher(opts Options, cfg LocalConfig) *LocalSearcher {
	if cfg.Method == "" {
		cfg.Method = MethodLBFGS
	}
	if cfg.GradientThreshold <= 0 {
		cfg.GradientThreshold = defaultGradientThreshold
	}
	if cfg.Step <= 0 {
		cfg.Step = defaultFDStep
	}
	return &LocalSearcher{opts: opts.withDefaults(), cfg: cfg}
}

func (l *LocalSearcher) Name() string { return string(l.cfg.Method) }

// Search minimizes the negated objective from the initial point.
func (l *LocalSearcher) Search(ctx context.Context, space *Space, objective Objective) (*Result, error) {
	if err := checkSearchInputs(space, objective); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, l.opts.Timeout)
	defer cancel()

	ev := newEvaluator(l.Name(), space, objective, l.opts)
	params := space.Params()

	start := space.Center()
	if l.cfg.Initial != nil {
		start = space.Normalize(l.cfg.Initial)
	}

	ev.logger.Info("starting search",
		zap.String("space", space.String()),
		zap.Int("budget", l.opts.MaxTrials),
		zap.String("initial", start.Key()))

	// Returned once the budget or the context is gone, so the method sees a
	// flat, bad region and the Status hook ends the run.
	sentinel := math.Abs(l.opts.Penalty)

	f := func(u []float64) float64 {
		t, ok := ev.evaluateOne(ctx, fromUnbounded(params, u))
		if !ok {
			return sentinel
		}
		return -t.Value
	}

	problem := optimize.Problem{
		Func: f,
		Status: func() (optimize.Status, error) {
			switch {
			case ctx.Err() != nil:
				return optimize.RuntimeLimit, nil
			case ev.exhausted():
				return optimize.FunctionEvaluationLimit, nil
			}
			return optimize.NotTerminated, nil
		},
	}

	var method optimize.Method
	switch l.cfg.Method {
	case MethodNelderMead:
		method = &optimize.NelderMead{SimplexSize: 0.5}
	default:
		step := l.cfg.Step
		problem.Grad = func(grad, u []float64) {
			gradient(grad, f, params, u, step)
		}
		method = &optimize.LBFGS{}
	}

	settings := &optimize.Settings{
		GradientThreshold: l.cfg.GradientThreshold,
		Converger:         &optimize.FunctionConverge{Absolute: 1e-9, Iterations: 20},
	}

	natural := "converged"
	res, err := optimize.Minimize(problem, toUnbounded(params, start), settings, method)
	switch {
	case err != nil:
		ev.logger.Debug("local method stopped with error", zap.Error(err))
		natural = err.Error()
	case res != nil:
		natural = res.Status.String()
	}

	result := ev.result(ev.stopReason(ctx, natural))
	ev.logger.Info("search finished", zap.String("summary", result.Summary()), zap.String("stop", result.StopReason))
	return result, nil
}

// gradient fills grad with central differences of f at u. Real dimensions
// use step. Integer dimensions are rounded before evaluation, so their step
// is widened until x moves by at least one unit either way; otherwise both
// samples land on the same integer and the slope reads as zero.
func gradient(grad []float64, f func([]float64) float64, params []Param, u []float64, step float64) {
	x := make([]float64, len(u))
	for i, param := range params {
		h := step
		if param.Kind == Integer {
			h = math.Min(math.Max(step, integerStep(param, u[i])), maxIntegerStep)
		}
		copy(x, u)
		grad[i] = fd.Derivative(func(v float64) float64 {
			x[i] = v
			return f(x)
		}, u[i], &fd.Settings{Formula: fd.Central, Step: h})
	}
}

// integerStep is the u-space step that moves x = min + width*sigmoid(u) by one unit.
func integerStep(param Param, u float64) float64 {
	s := 1 / (1 + math.Exp(-u))
	slope := param.Width() * s * (1 - s)
	if slope <= 0 {
		return maxIntegerStep
	}
	return 1 / slope
}

func toUnbounded(params []Param, p Point) []float64 {
	u := make([]float64, len(params))
	for i, param := range params {
		w := param.Width()
		if w == 0 {
			continue
		}
		frac := (p[param.Name] - param.Min) / w
		frac = math.Max(boundEpsilon, math.Min(1-boundEpsilon, frac))
		u[i] = math.Log(frac / (1 - frac))
	}
	return u
}

func fromUnbounded(params []Param, u []float64) Point {
	p := make(Point, len(params))
	for i, param := range params {
		p[param.Name] = param.Min + param.Width()/(1+math.Exp(-u[i]))
	}
	return p
}
