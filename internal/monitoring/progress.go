package monitoring

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// SearchProgress is the live state of one searcher
type SearchProgress struct {
	Searcher      string    `json:"searcher"`
	Budget        int       `json:"budget"`
	Trials        int       `json:"trials"`
	Complete      int       `json:"complete"`
	Degenerate    int       `json:"degenerate"`
	Penalized     int       `json:"penalized"`
	BestObjective *float64  `json:"best_objective,omitempty"`
	BestPoint     string    `json:"best_point,omitempty"`
	BestTrades    int       `json:"best_trades"`
	Started       time.Time `json:"started"`
	LastTrial     time.Time `json:"last_trial,omitempty"`
	Done          bool      `json:"done"`
}

// ProgressStatus is the /progress response body
type ProgressStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Searches  []SearchProgress `json:"searches"`
}

// Progress tracks every searcher reporting to it
type Progress struct {
	mu       sync.RWMutex
	started  time.Time
	searches map[string]*SearchProgress
	now      func() time.Time
}

// NewProgress creates an empty tracker
func NewProgress() *Progress {
	return &Progress{
		started:  time.Now(),
		searches: make(map[string]*SearchProgress),
		now:      time.Now,
	}
}

// Begin registers a searcher and its trial budget
func (p *Progress) Begin(searcher string, budget int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches[searcher] = &SearchProgress{Searcher: searcher, Budget: budget, Started: p.now()}
}

// Finish marks a searcher done
func (p *Progress) Finish(searcher string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.searches[searcher]; ok {
		s.Done = true
	}
}

// ObserveTrial implements optimization.TrialObserver. It reports whether the
// trial improved the best value.
func (p *Progress) ObserveTrial(searcher string, t optimization.Trial) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.searches[searcher]
	if !ok {
		s = &SearchProgress{Searcher: searcher, Started: p.now()}
		p.searches[searcher] = s
	}
	s.Trials++
	s.LastTrial = p.now()
	switch t.State {
	case optimization.TrialComplete:
		s.Complete++
	case optimization.TrialDegenerate:
		s.Degenerate++
	case optimization.TrialPenalized:
		s.Penalized++
	}

	if s.BestObjective != nil && t.Value <= *s.BestObjective {
		return false
	}
	v := t.Value
	s.BestObjective = &v
	s.BestPoint = t.Point.Key()
	s.BestTrades = t.Trades
	return true
}

// Snapshot returns a copy of the current state, sorted by searcher
func (p *Progress) Snapshot() ProgressStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := ProgressStatus{
		Status:    "idle",
		Timestamp: p.now(),
		Uptime:    time.Since(p.started).Round(time.Second).String(),
		Searches:  make([]SearchProgress, 0, len(p.searches)),
	}
	for _, s := range p.searches {
		cp := *s
		if cp.BestObjective != nil {
			v := *cp.BestObjective
			if math.IsInf(v, 0) || math.IsNaN(v) {
				cp.BestObjective = nil
			} else {
				cp.BestObjective = &v
			}
		}
		out.Searches = append(out.Searches, cp)
		if !s.Done {
			out.Status = "running"
		}
	}
	if out.Status == "idle" && len(out.Searches) > 0 {
		out.Status = "done"
	}
	sort.Slice(out.Searches, func(i, j int) bool { return out.Searches[i].Searcher < out.Searches[j].Searcher })
	return out
}

// ServeHTTP writes the snapshot as JSON
func (p *Progress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.Snapshot())
}
