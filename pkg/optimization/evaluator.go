package optimization

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const progressLogInterval = 25

// evaluator runs trials for one search. It owns the trial budget, the
// result cache and the best-seen trial. All methods are safe for concurrent use.
type evaluator struct {
	searcher  string
	space     *Space
	objective Objective
	opts      Options
	logger    *zap.Logger
	progress  *ProgressTracker
	started   time.Time

	mu           sync.Mutex
	reserved     int
	trials       int
	cacheHits    int
	degenerate   int
	penalized    int
	complete     int
	best         *Trial
	bestComplete *Trial // best trial that produced trades
	history      []Trial
	cache        map[string]Trial
}

func newEvaluator(searcher string, space *Space, objective Objective, opts Options) *evaluator {
	return &evaluator{
		searcher:  searcher,
		space:     space,
		objective: objective,
		opts:      opts,
		logger:    opts.Logger.With(zap.String("searcher", searcher)),
		progress:  NewProgressTracker(opts.MaxTrials),
		started:   time.Now(),
		cache:     make(map[string]Trial),
	}
}

// reserve claims one unit of the trial budget.
func (e *evaluator) reserve() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reserved >= e.opts.MaxTrials {
		return 0, false
	}
	e.reserved++
	return e.reserved, true
}

func (e *evaluator) remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.MaxTrials - e.reserved
}

func (e *evaluator) exhausted() bool {
	return e.remaining() <= 0
}

// lookup returns a cached trial for an already evaluated point.
func (e *evaluator) lookup(key string) (Trial, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.cache[key]
	if ok {
		e.cacheHits++
	}
	return t, ok
}

// run evaluates one point without recording it. The point is normalized
// first. ok is false when the evaluation was cut short by cancellation.
func (e *evaluator) run(ctx context.Context, number int, raw Point) (trial Trial, ok bool) {
	p := e.space.Normalize(raw)
	trial = Trial{Number: number, Point: p}
	start := time.Now()
	defer func() { trial.Duration = time.Since(start) }()

	if err := e.space.Validate(p); err != nil {
		return e.penalize(trial, err), true
	}
	if cached, hit := e.lookup(p.Key()); hit {
		cached.Number = number
		return cached, true
	}

	ev := e.safeObjective(ctx, p)
	switch {
	case ev.Err != nil:
		if ctx.Err() != nil && errors.Is(ev.Err, ctx.Err()) {
			return trial, false
		}
		return e.penalize(trial, ev.Err), true
	case math.IsNaN(ev.Value) || math.IsInf(ev.Value, 0):
		return e.penalize(trial, errNonFinite), true
	case ev.Trades == 0:
		trial.State = TrialDegenerate
		trial.Value = e.opts.DegenerateValue
	default:
		trial.State = TrialComplete
		trial.Value = ev.Value
		trial.Trades = ev.Trades
	}
	return trial, true
}

var errNonFinite = errors.New("objective returned a non-finite value")

func (e *evaluator) penalize(t Trial, err error) Trial {
	t.State = TrialPenalized
	t.Value = e.opts.Penalty
	t.Err = err
	return t
}

// safeObjective turns a panicking objective into a penalized trial.
func (e *evaluator) safeObjective(ctx context.Context, p Point) (ev Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("objective panicked", zap.Any("panic", r), zap.String("point", p.Key()))
			ev = Evaluation{Err: errObjectivePanic}
		}
	}()
	return e.objective(ctx, p)
}

var errObjectivePanic = errors.New("objective panicked")

// record folds a finished trial into the counters and the best-seen trial.
// Ties keep the earlier trial.
func (e *evaluator) record(t Trial) {
	e.mu.Lock()
	key := t.Point.Key()
	_, seen := e.cache[key]
	if !seen {
		e.cache[key] = t
		e.trials++
		switch t.State {
		case TrialComplete:
			e.complete++
		case TrialDegenerate:
			e.degenerate++
		case TrialPenalized:
			e.penalized++
		}
		if e.opts.KeepHistory {
			e.history = append(e.history, t)
		}
	}
	improved := e.best == nil || t.Value > e.best.Value
	if improved {
		best := t
		e.best = &best
	}
	if t.State == TrialComplete && (e.bestComplete == nil || t.Value > e.bestComplete.Value) {
		best := t
		e.bestComplete = &best
	}
	trials := e.trials
	e.mu.Unlock()

	e.progress.Increment()
	if t.State == TrialPenalized {
		e.logger.Debug("trial penalized", zap.Int("trial", t.Number), zap.String("point", t.Point.Key()), zap.Error(t.Err))
	}
	if improved {
		e.logger.Debug("new best trial",
			zap.Int("trial", t.Number),
			zap.Float64("objective", t.Value),
			zap.Int("trades", t.Trades),
			zap.String("point", t.Point.Key()))
	}
	if !seen && trials%progressLogInterval == 0 {
		done, total, pct, elapsed := e.progress.GetProgress()
		e.logger.Info("search progress",
			zap.Int("done", done),
			zap.Int("budget", total),
			zap.Float64("percent", pct),
			zap.Duration("elapsed", elapsed),
			zap.Duration("eta", e.progress.EstimateTimeRemaining()))
	}
	if e.opts.Observer != nil && !seen {
		e.opts.Observer.ObserveTrial(e.searcher, t)
	}
}

// evaluateOne reserves, runs and records a single trial.
func (e *evaluator) evaluateOne(ctx context.Context, p Point) (Trial, bool) {
	if ctx.Err() != nil {
		return Trial{}, false
	}
	number, ok := e.reserve()
	if !ok {
		return Trial{}, false
	}
	t, ok := e.run(ctx, number, p)
	if !ok {
		return Trial{}, false
	}
	e.record(t)
	return t, true
}

// runBatch evaluates points on the pool and records them in submission order,
// so the outcome does not depend on worker scheduling. The returned slice is
// aligned with points; entries are nil for points dropped by the budget or
// by cancellation.
func (e *evaluator) runBatch(ctx context.Context, pool *WorkerPool, points []Point) []*Trial {
	out := make([]*Trial, len(points))
	index := make(map[int]int, len(points))
	jobs := make([]TrialJob, 0, len(points))
	for i, p := range points {
		if ctx.Err() != nil || len(jobs) >= pool.Capacity() {
			break
		}
		number, ok := e.reserve()
		if !ok {
			break
		}
		index[number] = i
		jobs = append(jobs, TrialJob{Number: number, Point: p})
	}

	submitted := 0
	for _, job := range jobs {
		if err := pool.SubmitJob(job); err != nil {
			break
		}
		submitted++
	}

	finished := make([]Trial, 0, submitted)
	for i := 0; i < submitted; i++ {
		res := <-pool.GetResults()
		if res.OK {
			finished = append(finished, res.Trial)
		}
	}

	sort.Slice(finished, func(i, j int) bool { return finished[i].Number < finished[j].Number })
	for _, t := range finished {
		e.record(t)
		trial := t
		out[index[t.Number]] = &trial
	}
	return out
}

// newPool builds a worker pool whose jobs run through this evaluator.
func (e *evaluator) newPool(ctx context.Context, batchSize int) *WorkerPool {
	return NewWorkerPool(e.opts.Workers, batchSize, func(job TrialJob) TrialResult {
		t, ok := e.run(ctx, job.Number, job.Point)
		return TrialResult{Trial: t, OK: ok}
	})
}

// result snapshots the search outcome.
func (e *evaluator) result(stopReason string) *Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &Result{
		Searcher:   e.searcher,
		Trials:     e.trials,
		CacheHits:  e.cacheHits,
		Degenerate: e.degenerate,
		Penalized:  e.penalized,
		StopReason: stopReason,
		Duration:   time.Since(e.started),
		History:    e.history,
	}
	if e.best == nil {
		r.BestPoint = e.space.Center()
		r.BestObjective = e.opts.Penalty
		r.Status = StatusNoValidParameters
		return r
	}
	best, status := e.best, StatusNoValidParameters
	if e.bestComplete != nil {
		best, status = e.bestComplete, StatusSucceeded
	}
	r.BestPoint = best.Point.Clone()
	r.BestObjective = best.Value
	r.BestTrades = best.Trades
	r.Status = status
	return r
}

// stopReason describes why a search loop ended.
func (e *evaluator) stopReason(ctx context.Context, natural string) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "time budget exhausted"
	case ctx.Err() != nil:
		return "cancelled"
	case e.exhausted():
		return "trial budget exhausted"
	default:
		return natural
	}
}

// withTimeout applies Options.Timeout when set.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
