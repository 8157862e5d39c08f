package orchestrator

import (
	"context"

	"github.com/ducminhle1904/signal-optimizer/pkg/config"
	"github.com/ducminhle1904/signal-optimizer/pkg/optimization"
)

// SingleBacktestWorkflow represents a single backtest workflow
type SingleBacktestWorkflow struct {
	orchestrator Orchestrator
	config       *config.RunConfig
	point        optimization.Point
}

// NewSingleBacktestWorkflow creates a new single backtest workflow
func NewSingleBacktestWorkflow(orchestrator Orchestrator, cfg *config.RunConfig, p optimization.Point) Workflow {
	return &SingleBacktestWorkflow{orchestrator: orchestrator, config: cfg, point: p}
}

// Execute runs the single backtest workflow
func (w *SingleBacktestWorkflow) Execute(ctx context.Context) (interface{}, error) {
	return w.orchestrator.RunSingleBacktest(ctx, w.config, w.point)
}

// GetWorkflowType returns the workflow type
func (w *SingleBacktestWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeSingle
}

// OptimizationWorkflow represents an optimization workflow
type OptimizationWorkflow struct {
	orchestrator Orchestrator
	config       *config.RunConfig
}

// NewOptimizationWorkflow creates a new optimization workflow
func NewOptimizationWorkflow(orchestrator Orchestrator, cfg *config.RunConfig) Workflow {
	return &OptimizationWorkflow{orchestrator: orchestrator, config: cfg}
}

// Execute runs the optimization workflow
func (w *OptimizationWorkflow) Execute(ctx context.Context) (interface{}, error) {
	return w.orchestrator.RunOptimization(ctx, w.config)
}

// GetWorkflowType returns the workflow type
func (w *OptimizationWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeOptimization
}

// IntervalAnalysisWorkflow represents a multi-interval analysis workflow
type IntervalAnalysisWorkflow struct {
	orchestrator Orchestrator
	config       *config.RunConfig
}

// NewIntervalAnalysisWorkflow creates a new interval analysis workflow
func NewIntervalAnalysisWorkflow(orchestrator Orchestrator, cfg *config.RunConfig) Workflow {
	return &IntervalAnalysisWorkflow{orchestrator: orchestrator, config: cfg}
}

// Execute runs the interval analysis workflow
func (w *IntervalAnalysisWorkflow) Execute(ctx context.Context) (interface{}, error) {
	return w.orchestrator.RunMultiIntervalAnalysis(ctx, w.config)
}

// GetWorkflowType returns the workflow type
func (w *IntervalAnalysisWorkflow) GetWorkflowType() WorkflowType {
	return WorkflowTypeInterval
}
