// Package gitinfo derives per-file change facts from version-control
// history. It only reads: status, diffs against the base branch, and commit
// timestamps. No git mutation happens here.
package gitinfo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/reqtrace/reqtrace/requirement"
)

// DefaultBaseBranch is diffed against when no base branch is configured.
const DefaultBaseBranch = "origin/main"

// Collector computes change facts for requirement source files.
type Collector struct {
	repoRoot   string
	baseBranch string
	logger     *slog.Logger
}

// NewCollector creates a Collector for the given repository root.
func NewCollector(repoRoot string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		repoRoot:   repoRoot,
		baseBranch: DefaultBaseBranch,
		logger:     logger,
	}
}

// WithBaseBranch overrides the branch the working tree is compared against.
func (c *Collector) WithBaseBranch(branch string) *Collector {
	if branch != "" {
		c.baseBranch = branch
	}
	return c
}

// Collect returns change facts for each of the given repo-relative paths.
// Outside a git repository every file reports zero facts; the report is
// still generated, just without change highlighting.
func (c *Collector) Collect(ctx context.Context, paths []string) (map[string]requirement.ChangeInfo, error) {
	facts := make(map[string]requirement.ChangeInfo, len(paths))
	for _, p := range paths {
		facts[filepath.ToSlash(p)] = requirement.ChangeInfo{}
	}

	if !c.isGitRepo() {
		c.logger.Debug("Not a git repository, skipping change facts",
			slog.String("repo", c.repoRoot))
		return facts, nil
	}

	if err := c.applyStatus(ctx, facts); err != nil {
		return nil, err
	}
	c.applyBranchDiff(ctx, facts)
	c.applyHistory(ctx, facts)
	return facts, nil
}

// applyStatus marks uncommitted, new, and moved files from the working tree
// status.
func (c *Collector) applyStatus(ctx context.Context, facts map[string]requirement.ChangeInfo) error {
	out, err := c.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}

	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])

		// Renames report "old -> new"; the new path is the tracked one.
		if idx := strings.Index(path, " -> "); idx != -1 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)

		info, tracked := facts[path]
		if !tracked {
			continue
		}

		info.IsUncommitted = true
		if strings.Contains(code, "?") || strings.Contains(code, "A") {
			info.IsNew = true
		}
		if strings.Contains(code, "R") {
			info.IsMoved = true
		}
		if strings.Contains(code, "M") {
			info.IsModified = true
		}
		facts[path] = info
	}
	return nil
}

// applyBranchDiff marks files that differ from the merge base of the base
// branch. Failures are tolerated: shallow clones or missing remotes simply
// lose branch-change highlighting.
func (c *Collector) applyBranchDiff(ctx context.Context, facts map[string]requirement.ChangeInfo) {
	base, err := c.runGit(ctx, "merge-base", c.baseBranch, "HEAD")
	if err != nil {
		c.logger.Debug("No merge base for branch diff",
			slog.String("base_branch", c.baseBranch),
			slog.String("error", err.Error()))
		return
	}
	base = strings.TrimSpace(base)

	out, err := c.runGit(ctx, "diff", "--name-status", "-M", base, "HEAD")
	if err != nil {
		c.logger.Debug("Branch diff failed", slog.String("error", err.Error()))
		return
	}

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		code := fields[0]
		path := fields[len(fields)-1]

		info, tracked := facts[path]
		if !tracked {
			continue
		}

		info.IsBranchChanged = true
		switch {
		case strings.HasPrefix(code, "A"):
			info.IsNew = true
		case strings.HasPrefix(code, "R"):
			info.IsMoved = true
		case strings.HasPrefix(code, "M"):
			info.IsModified = true
		}
		facts[path] = info
	}
}

// applyHistory fills the last commit hash and timestamp per file. A file
// with no committed history at all is new.
func (c *Collector) applyHistory(ctx context.Context, facts map[string]requirement.ChangeInfo) {
	for path, info := range facts {
		out, err := c.runGit(ctx, "log", "-1", "--format=%H%x09%cI", "--", path)
		if err != nil {
			continue
		}
		out = strings.TrimSpace(out)
		if out == "" {
			info.IsNew = true
			facts[path] = info
			continue
		}

		fields := strings.Split(out, "\t")
		info.LastCommit = fields[0]
		if len(fields) > 1 {
			if ts, err := time.Parse(time.RFC3339, fields[1]); err == nil {
				info.LastChangedAt = ts
			}
		}
		facts[path] = info
	}
}

// Apply copies the collected facts onto the requirements by source path.
func Apply(reqs []*requirement.Requirement, facts map[string]requirement.ChangeInfo) {
	for _, r := range reqs {
		if info, ok := facts[filepath.ToSlash(r.SourcePath)]; ok {
			r.Change = info
		}
	}
}

// isGitRepo checks whether the repo root is inside a git work tree.
func (c *Collector) isGitRepo() bool {
	if _, err := os.Stat(filepath.Join(c.repoRoot, ".git")); err == nil {
		return true
	}
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// runGit executes a git command in the repo root and returns its combined
// output.
func (c *Collector) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.repoRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
