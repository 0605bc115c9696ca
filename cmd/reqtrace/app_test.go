package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/config"
	"github.com/reqtrace/reqtrace/metrics"
)

const rootDoc = `---
id: REQ-001
title: Export reports
level: PRD
status: Active
---

Reports must be exportable in multiple formats.
`

const childDoc = `---
id: REQ-002
title: JSON export
level: DEV
status: Active
implements:
  - REQ-001
---

JSON export for machine consumers.
`

const annotatedSource = `package export

// Implements: REQ-002
func WriteJSON() {}
`

// newTestApp builds an App over a throwaway repo with two requirements and
// one annotated source file.
func newTestApp(t *testing.T) *App {
	t.Helper()
	repo := t.TempDir()

	reqDir := filepath.Join(repo, "requirements")
	require.NoError(t, os.MkdirAll(reqDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(reqDir, "req-001.md"), []byte(rootDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(reqDir, "req-002.md"), []byte(childDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "export.go"), []byte(annotatedSource), 0644))

	cfg := config.DefaultConfig()
	cfg.Repo.Path = repo
	cfg.Report.Formats = []string{"json", "markdown"}
	cfg.Git.Enabled = false
	require.NoError(t, cfg.Validate())

	return &App{
		cfg:     cfg,
		logger:  slog.Default(),
		metrics: metrics.New(),
	}
}

func TestApp_Generate(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Generate(context.Background()))

	outDir := filepath.Join(app.cfg.Repo.Path, "reports")

	data, err := os.ReadFile(filepath.Join(outDir, "report.json"))
	require.NoError(t, err)

	var decoded struct {
		Summary struct {
			Requirements int `json:"requirements"`
			Full         int `json:"full"`
		} `json:"summary"`
		Coverage map[string]string `json:"coverage"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 2, decoded.Summary.Requirements)
	// The annotation gives REQ-002 a file, which is not enough for REQ-001
	// to be full on its own.
	assert.Equal(t, "full", decoded.Coverage["REQ-002"])
	assert.Equal(t, "partial", decoded.Coverage["REQ-001"])

	md, err := os.ReadFile(filepath.Join(outDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "REQ-001")
	assert.Contains(t, string(md), "`export.go:3`")

	// HTML was not requested.
	_, err = os.Stat(filepath.Join(outDir, "report.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestApp_GenerateRepoRelativeSourcePaths(t *testing.T) {
	app := newTestApp(t)
	store, err := app.loadStore(context.Background())
	require.NoError(t, err)

	req, err := store.Get("REQ-001")
	require.NoError(t, err)
	assert.Equal(t, "requirements/req-001.md", req.SourcePath)
}
