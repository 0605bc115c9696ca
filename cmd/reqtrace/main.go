// Package main provides the reqtrace binary entry point.
// Reqtrace builds requirement traceability reports: it loads requirement
// documents, resolves the implements graph, rolls up implementation
// coverage, and renders the result as HTML, Markdown, and JSON.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/requirement"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "reqtrace"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		repoPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "reqtrace",
		Short: "Requirement traceability report engine",
		Long: `Reqtrace builds traceability reports over a requirement hierarchy.

Requirements live as markdown documents with YAML frontmatter; each one
names the higher-level requirements it implements. Reqtrace resolves that
graph, computes implementation coverage from declared files and source
annotations, and renders a collapsible report.

It provides:
- Graph resolution with cycle and orphan detection
- Coverage rollup (full, partial, unimplemented)
- Source scanning for "Implements: REQ-..." annotations
- Git change highlighting for requirement documents`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&repoPath, "repo", "", "Repository path to operate on")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(generateCmd(&configPath, &repoPath, &logLevel))
	cmd.AddCommand(watchCmd(&configPath, &repoPath, &logLevel))
	cmd.AddCommand(importCmd(&configPath, &repoPath, &logLevel))
	cmd.AddCommand(publishCmd(&configPath, &repoPath, &logLevel))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func generateCmd(configPath, repoPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a traceability report",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *repoPath, *logLevel)
			if err != nil {
				return err
			}
			return app.Generate(cmd.Context())
		},
	}
}

func watchCmd(configPath, repoPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the report on file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *repoPath, *logLevel)
			if err != nil {
				return err
			}
			return app.Watch(cmd.Context())
		},
	}
}

func publishCmd(configPath, repoPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Generate a report and publish it to NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *repoPath, *logLevel)
			if err != nil {
				return err
			}
			return app.Publish(cmd.Context())
		},
	}
}

func importCmd(configPath, repoPath, logLevel *string) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "import <url-or-file>...",
		Short: "Import HTML documents as requirement drafts",
		Long: `Import converts HTML pages into requirement documents with YAML
frontmatter, written into the configured requirements directory. HTTPS
URLs are fetched; other arguments are read as local files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*configPath, *repoPath, *logLevel)
			if err != nil {
				return err
			}
			lvl, err := requirement.ParseLevel(level)
			if err != nil {
				return err
			}
			return app.Import(cmd.Context(), args, lvl)
		},
	}

	cmd.Flags().StringVar(&level, "level", string(requirement.LevelPRD), "Requirement level for imported documents (PRD, OPS, DEV)")
	return cmd
}

// setupLogger configures the process-wide logger.
func setupLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
