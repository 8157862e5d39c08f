package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// Monitor fans trials out to the Prometheus metrics and the progress tracker.
type Monitor struct {
	Metrics  *Metrics
	Progress *Progress
	logger   *zap.Logger
}

// NewMonitor creates a monitor with fresh metrics and progress
func NewMonitor(logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		Metrics:  NewMetrics(),
		Progress: NewProgress(),
		logger:   logger.Named("monitoring"),
	}
}

// Begin registers a searcher before its first trial
func (m *Monitor) Begin(searcher string, budget int) {
	m.Progress.Begin(searcher, budget)
}

// Finish marks a searcher done
func (m *Monitor) Finish(searcher string) {
	m.Progress.Finish(searcher)
}

// ObserveTrial implements optimization.TrialObserver
func (m *Monitor) ObserveTrial(searcher string, t optimization.Trial) {
	m.Metrics.ObserveTrial(searcher, t)
	if m.Progress.ObserveTrial(searcher, t) {
		m.Metrics.SetBest(searcher, t.Value)
	}
}

// Handler serves /metrics, /progress and /health
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Metrics.Registry(), promhttp.HandlerOpts{}))
	mux.Handle("/progress", m.Progress)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr until ctx is done
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
