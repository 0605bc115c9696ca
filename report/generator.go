// Package report runs the graph pipeline for one requirement collection and
// renders the result as JSON, Markdown, or HTML.
package report

import (
	"log/slog"
	"time"

	"github.com/reqtrace/reqtrace/graph"
	"github.com/reqtrace/reqtrace/metrics"
	"github.com/reqtrace/reqtrace/requirement"
)

// Report is the complete output of one generation run. All derived
// structures are build-once and read-only; the next run rebuilds them from a
// freshly loaded store.
type Report struct {
	Title        string                                `json:"title"`
	GeneratedAt  time.Time                             `json:"generated_at"`
	Requirements map[string]*requirement.Requirement   `json:"requirements"`
	Resolution   *graph.Resolution                     `json:"resolution"`
	Coverage     map[string]requirement.CoverageStatus `json:"coverage"`
	Instances    []graph.Instance                      `json:"instances"`
	Summary      Summary                               `json:"summary"`
}

// Summary aggregates counts for the report header.
type Summary struct {
	Requirements  int `json:"requirements"`
	Roots         int `json:"roots"`
	Orphans       int `json:"orphans"`
	Cycles        int `json:"cycles"`
	Instances     int `json:"instances"`
	Full          int `json:"full"`
	Partial       int `json:"partial"`
	Unimplemented int `json:"unimplemented"`
}

// Generator wires the resolver, coverage engine, and flattener into one
// report pipeline. A Generator is reusable; every Generate call allocates
// fresh graph state, so concurrent runs on separate stores are independent.
type Generator struct {
	title    string
	maxDepth int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewGenerator creates a Generator with the default depth cap.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		title:    "Requirement Traceability Report",
		maxDepth: graph.DefaultMaxDepth,
		logger:   logger,
	}
}

// WithTitle overrides the report title.
func (g *Generator) WithTitle(title string) *Generator {
	if title != "" {
		g.title = title
	}
	return g
}

// WithMaxDepth overrides the traversal depth cap for resolver and flattener.
func (g *Generator) WithMaxDepth(n int) *Generator {
	if n > 0 {
		g.maxDepth = n
	}
	return g
}

// WithMetrics instruments report generation.
func (g *Generator) WithMetrics(m *metrics.Metrics) *Generator {
	g.metrics = m
	return g
}

// Generate runs resolve, coverage, and flatten over the store contents.
func (g *Generator) Generate(store requirement.Store) *Report {
	started := time.Now()
	reqs := store.GetAllRequirements()

	res := graph.NewResolver().WithMaxDepth(g.maxDepth).Resolve(reqs)
	coverage := graph.ComputeCoverage(reqs, res.Children)
	instances := graph.NewFlattener().WithMaxDepth(g.maxDepth).Flatten(reqs, res, coverage)

	summary := Summary{
		Requirements: len(reqs),
		Roots:        len(res.Roots),
		Orphans:      len(res.Orphans),
		Cycles:       len(res.Cycles),
		Instances:    len(instances),
	}
	for _, status := range coverage {
		switch status {
		case requirement.CoverageFull:
			summary.Full++
		case requirement.CoveragePartial:
			summary.Partial++
		default:
			summary.Unimplemented++
		}
	}

	if g.metrics != nil {
		g.metrics.ObserveRun(summary.Requirements, summary.Orphans, summary.Cycles, time.Since(started))
	}

	g.logger.Info("Generated traceability report",
		slog.Int("requirements", summary.Requirements),
		slog.Int("instances", summary.Instances),
		slog.Int("cycles", summary.Cycles),
		slog.Int("orphans", summary.Orphans),
		slog.Duration("elapsed", time.Since(started)))

	return &Report{
		Title:        g.title,
		GeneratedAt:  started,
		Requirements: reqs,
		Resolution:   res,
		Coverage:     coverage,
		Instances:    instances,
		Summary:      summary,
	}
}
