package optimization

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// TPEConfig tunes the tree-structured Parzen estimator sampler.
type TPEConfig struct {
	// StartupTrials are drawn uniformly before the model is used.
	StartupTrials int
	// Candidates drawn from the good-trial density per proposal.
	Candidates int
	// Gamma is the fraction of trials treated as good, capped at MaxGood.
	Gamma   float64
	MaxGood int
	// BatchSize is the number of proposals evaluated in parallel per round.
	// Zero means one per worker.
	BatchSize   int
	PriorWeight float64
}

// DefaultTPEConfig mirrors the usual optuna defaults.
func DefaultTPEConfig() TPEConfig {
	return TPEConfig{
		StartupTrials: 10,
		Candidates:    24,
		Gamma:         0.25,
		MaxGood:       25,
		PriorWeight:   1.0,
	}
}

// TPESampler is a sequential model-based global search. Each round it splits
// the observed trials into good and bad sets, fits a Parzen density to each
// dimension of both, and proposes the candidate that maximizes l(x)/g(x).
type TPESampler struct {
	opts Options
	cfg  TPEConfig
}

// NewTPESampler creates a sampler. Zero config fields take defaults.
func NewTPESampler(opts Options, cfg TPEConfig) *TPESampler {
	def := DefaultTPEConfig()
	if cfg.StartupTrials <= 0 {
		cfg.StartupTrials = def.StartupTrials
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = def.Candidates
	}
	if cfg.Gamma <= 0 || cfg.Gamma >= 1 {
		cfg.Gamma = def.Gamma
	}
	if cfg.MaxGood <= 0 {
		cfg.MaxGood = def.MaxGood
	}
	if cfg.PriorWeight <= 0 {
		cfg.PriorWeight = def.PriorWeight
	}
	return &TPESampler{opts: opts.withDefaults(), cfg: cfg}
}

func (s *TPESampler) Name() string { return "tpe" }

// Search proposes and evaluates points until the trial or time budget runs out.
func (s *TPESampler) Search(ctx context.Context, space *Space, objective Objective) (*Result, error) {
	if err := checkSearchInputs(space, objective); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	ev := newEvaluator(s.Name(), space, objective, s.opts)
	rng := rand.New(rand.NewSource(s.opts.Seed))

	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = effectiveWorkers(s.opts.Workers)
	}
	pool := ev.newPool(ctx, batch)
	pool.Start()
	defer pool.Stop()

	ev.logger.Info("starting search",
		zap.String("space", space.String()),
		zap.Int("budget", s.opts.MaxTrials),
		zap.Int("batch", batch),
		zap.Int64("seed", s.opts.Seed))

	observed := make([]Trial, 0, s.opts.MaxTrials)
	for ctx.Err() == nil && !ev.exhausted() {
		n := batch
		if r := ev.remaining(); r < n {
			n = r
		}
		points := make([]Point, n)
		for i := range points {
			if len(observed)+i < s.cfg.StartupTrials {
				points[i] = space.Sample(rng)
			} else {
				points[i] = s.propose(space, observed, rng)
			}
		}
		for _, t := range ev.runBatch(ctx, pool, points) {
			if t != nil {
				observed = append(observed, *t)
			}
		}
	}

	result := ev.result(ev.stopReason(ctx, "completed"))
	ev.logger.Info("search finished", zap.String("summary", result.Summary()), zap.String("stop", result.StopReason))
	return result, nil
}

// propose returns the best of Candidates draws from the good-set density.
func (s *TPESampler) propose(space *Space, observed []Trial, rng *rand.Rand) Point {
	sorted := make([]Trial, len(observed))
	copy(sorted, observed)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	nGood := int(math.Ceil(s.cfg.Gamma * float64(len(sorted))))
	if nGood > s.cfg.MaxGood {
		nGood = s.cfg.MaxGood
	}
	if nGood < 1 {
		nGood = 1
	}
	if nGood >= len(sorted) {
		return space.Sample(rng)
	}
	good, bad := sorted[:nGood], sorted[nGood:]

	params := space.Params()
	lower := make([]*parzen, len(params))
	upper := make([]*parzen, len(params))
	for d, param := range params {
		lower[d] = newParzen(unitValues(param, good), s.cfg.PriorWeight)
		upper[d] = newParzen(unitValues(param, bad), s.cfg.PriorWeight)
	}

	var best Point
	bestScore := math.Inf(-1)
	for c := 0; c < s.cfg.Candidates; c++ {
		cand := make(Point, len(params))
		score := 0.0
		for d, param := range params {
			if param.Width() == 0 {
				cand[param.Name] = param.Min
				continue
			}
			u := lower[d].sample(rng)
			score += lower[d].logPDF(u) - upper[d].logPDF(u)
			cand[param.Name] = param.Min + u*param.Width()
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if best == nil {
		return space.Sample(rng)
	}
	return best
}

func unitValues(param Param, trials []Trial) []float64 {
	out := make([]float64, 0, len(trials))
	w := param.Width()
	for _, t := range trials {
		if w == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (t.Point[param.Name]-param.Min)/w)
	}
	return out
}

// parzen is a mixture of normals truncated to [0,1], one per observation plus
// a wide prior centred on the interval.
type parzen struct {
	mus     []float64
	sigmas  []float64
	weights []float64
}

func newParzen(obs []float64, priorWeight float64) *parzen {
	mus := append([]float64{0.5}, obs...)
	n := len(mus)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return mus[order[a]] < mus[order[b]] })

	minSigma := 1.0 / math.Min(100, float64(n))
	sigmas := make([]float64, n)
	for rank, i := range order {
		left := mus[i]
		if rank > 0 {
			left = mus[i] - mus[order[rank-1]]
		}
		right := 1 - mus[i]
		if rank < n-1 {
			right = mus[order[rank+1]] - mus[i]
		}
		sigmas[i] = math.Max(minSigma, math.Min(1, math.Max(left, right)))
	}
	sigmas[0] = 1

	weights := make([]float64, n)
	total := priorWeight + float64(n-1)
	weights[0] = priorWeight / total
	for i := 1; i < n; i++ {
		weights[i] = 1 / total
	}
	return &parzen{mus: mus, sigmas: sigmas, weights: weights}
}

func (p *parzen) sample(rng *rand.Rand) float64 {
	r := rng.Float64()
	k := len(p.weights) - 1
	acc := 0.0
	for i, w := range p.weights {
		acc += w
		if r < acc {
			k = i
			break
		}
	}
	for attempt := 0; attempt < 20; attempt++ {
		u := p.mus[k] + p.sigmas[k]*rng.NormFloat64()
		if u >= 0 && u <= 1 {
			return u
		}
	}
	return math.Max(0, math.Min(1, p.mus[k]))
}

func (p *parzen) logPDF(u float64) float64 {
	density := 0.0
	for i := range p.mus {
		density += p.weights[i] * truncatedNormalPDF(u, p.mus[i], p.sigmas[i])
	}
	if density <= 0 {
		return math.Inf(-1)
	}
	return math.Log(density)
}

func truncatedNormalPDF(x, mu, sigma float64) float64 {
	n := distuv.Normal{Mu: mu, Sigma: sigma}
	z := n.CDF(1) - n.CDF(0)
	if z <= 0 {
		return 0
	}
	return n.Prob(x) / z
}
