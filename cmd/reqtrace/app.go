package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/reqtrace/reqtrace/config"
	"github.com/reqtrace/reqtrace/export"
	"github.com/reqtrace/reqtrace/gitinfo"
	"github.com/reqtrace/reqtrace/metrics"
	"github.com/reqtrace/reqtrace/report"
	"github.com/reqtrace/reqtrace/requirement"
	"github.com/reqtrace/reqtrace/scan"
	"github.com/reqtrace/reqtrace/source"
	"github.com/reqtrace/reqtrace/source/htmlimport"
	"github.com/reqtrace/reqtrace/watch"
)

// App wires configuration, the load/scan/git pipeline, and report output.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// newApp loads configuration and prepares the pipeline.
func newApp(configPath, repoPath, logLevel string) (*App, error) {
	logger := setupLogger(logLevel)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if repoPath != "" {
		cfg.Repo.Path = repoPath
	}
	if cfg.Repo.Path == "" {
		cfg.Repo.Path = "."
	}
	absRepoPath, err := filepath.Abs(cfg.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(absRepoPath)
	if err != nil {
		return nil, fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRepoPath)
	}
	cfg.Repo.Path = absRepoPath

	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

// requirementsDir resolves the configured requirements directory against the
// repo root.
func (a *App) requirementsDir() string {
	dir := a.cfg.Requirements.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(a.cfg.Repo.Path, dir)
	}
	return dir
}

// loadStore runs load, scan, and git collection, and returns the populated
// requirement store for one report run.
func (a *App) loadStore(ctx context.Context) (*requirement.MemStore, error) {
	reqsDir := a.requirementsDir()
	reqs, err := source.NewLoader(reqsDir, a.logger).
		WithPatterns(a.cfg.Requirements.Include, a.cfg.Requirements.Exclude).
		Load()
	if err != nil {
		return nil, err
	}

	// Source paths come back relative to the requirements directory; the
	// rest of the pipeline wants them relative to the repo root.
	if rel, err := filepath.Rel(a.cfg.Repo.Path, reqsDir); err == nil && !strings.HasPrefix(rel, "..") {
		prefix := filepath.ToSlash(rel)
		for _, r := range reqs {
			r.SourcePath = path.Join(prefix, r.SourcePath)
		}
	}

	if a.cfg.Scan.Enabled {
		annotations, err := scan.NewScanner(a.cfg.Repo.Path, a.logger).
			WithPatterns(a.cfg.Scan.Include, a.cfg.Scan.Exclude).
			Scan(ctx)
		if err != nil {
			return nil, err
		}
		scan.Merge(reqs, annotations, a.logger)
	}

	if a.cfg.Git.Enabled {
		paths := make([]string, 0, len(reqs))
		for _, r := range reqs {
			paths = append(paths, r.SourcePath)
		}
		facts, err := gitinfo.NewCollector(a.cfg.Repo.Path, a.logger).
			WithBaseBranch(a.cfg.Git.BaseBranch).
			Collect(ctx, paths)
		if err != nil {
			return nil, err
		}
		gitinfo.Apply(reqs, facts)
	}

	return requirement.NewMemStore(reqs)
}

// Generate runs one report generation and writes the configured outputs.
func (a *App) Generate(ctx context.Context) error {
	r, err := a.generateReport(ctx)
	if err != nil {
		return err
	}

	if a.cfg.NATS.URL != "" {
		pub, err := export.NewPublisher(a.cfg.NATS.URL, a.cfg.NATS.Subject, a.logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// generateReport builds the report and writes the output files.
func (a *App) generateReport(ctx context.Context) (*report.Report, error) {
	store, err := a.loadStore(ctx)
	if err != nil {
		return nil, err
	}

	r := report.NewGenerator(a.logger).
		WithTitle(a.cfg.Report.Title).
		WithMaxDepth(a.cfg.Report.MaxDepth).
		WithMetrics(a.metrics).
		Generate(store)

	outDir := a.cfg.Report.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(a.cfg.Repo.Path, outDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	for _, format := range a.cfg.Report.Formats {
		if err := a.writeFormat(r, outDir, format); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// writeFormat renders one output format into the output directory.
func (a *App) writeFormat(r *report.Report, outDir, format string) error {
	var (
		name  string
		write func(*os.File) error
	)
	switch format {
	case "html":
		name = "report.html"
		write = func(f *os.File) error { return r.WriteHTML(f) }
	case "markdown":
		name = "report.md"
		write = func(f *os.File) error { return r.WriteMarkdown(f) }
	case "json":
		name = "report.json"
		write = func(f *os.File) error { return r.WriteJSON(f) }
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}

	outPath := filepath.Join(outDir, name)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	a.logger.Info("Wrote report", slog.String("path", outPath), slog.String("format", format))
	return nil
}

// Watch regenerates the report whenever watched files change, until the
// context is cancelled.
func (a *App) Watch(ctx context.Context) error {
	// Initial report so the output exists before the first change.
	if err := a.Generate(ctx); err != nil {
		return err
	}

	if a.cfg.Metrics.Listen != "" {
		a.serveMetrics(ctx)
	}

	watcher, err := watch.NewWatcher(a.cfg.Repo.Path, watch.Options{
		Debounce:    a.cfg.Watch.GetDebounce(),
		Extensions:  a.cfg.Watch.Extensions,
		ExcludeDirs: a.cfg.Watch.ExcludeDirs,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}
			a.logger.Info("Changes detected, regenerating report",
				slog.Int("changes", len(batch)))
			a.metrics.ObserveRebuild()
			if err := a.Generate(ctx); err != nil {
				// A broken intermediate state must not kill watch mode;
				// the next save gets another chance.
				a.logger.Error("Report generation failed",
					slog.String("error", err.Error()))
			}
		}
	}
}

// Publish generates a report and publishes it to NATS. Unlike Generate,
// a missing NATS URL is an error here.
func (a *App) Publish(ctx context.Context) error {
	if a.cfg.NATS.URL == "" {
		return fmt.Errorf("nats.url must be configured to publish")
	}
	return a.Generate(ctx)
}

// serveMetrics exposes the Prometheus endpoint for the watch loop.
func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}

	go func() {
		a.logger.Info("Serving metrics", slog.String("addr", a.cfg.Metrics.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Import converts HTML pages or files into requirement drafts in the
// requirements directory.
func (a *App) Import(ctx context.Context, sources []string, level requirement.Level) error {
	importer := htmlimport.NewImporter(a.logger)
	destDir := a.requirementsDir()

	for _, src := range sources {
		var (
			written string
			err     error
		)
		if strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "http://") {
			written, err = importer.ImportURL(ctx, src, destDir, level)
		} else {
			written, err = importer.ImportFile(src, destDir, level)
		}
		if err != nil {
			return fmt.Errorf("import %s: %w", src, err)
		}
		fmt.Printf("Imported %s -> %s\n", src, written)
	}
	return nil
}
