package source

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/reqtrace/reqtrace/requirement"
)

// DefaultInclude matches requirement documents anywhere under the root.
var DefaultInclude = []string{"**/*.md"}

// DefaultExclude skips directories that never hold requirement documents.
var DefaultExclude = []string{".git/**", "node_modules/**", "vendor/**"}

// Loader walks a requirements directory and builds the requirement store
// input for one report run.
type Loader struct {
	root    string
	include []string
	exclude []string
	logger  *slog.Logger
}

// NewLoader creates a Loader rooted at the given requirements directory.
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		root:    root,
		include: DefaultInclude,
		exclude: DefaultExclude,
		logger:  logger,
	}
}

// WithPatterns overrides the include/exclude glob patterns. Patterns use
// doublestar syntax and match paths relative to the root.
func (l *Loader) WithPatterns(include, exclude []string) *Loader {
	if len(include) > 0 {
		l.include = include
	}
	if len(exclude) > 0 {
		l.exclude = exclude
	}
	return l
}

// Load parses every matching document under the root. A malformed document
// fails the load: the store must reject bad records before they reach the
// graph engine.
func (l *Loader) Load() ([]*requirement.Requirement, error) {
	var reqs []*requirement.Requirement

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !l.matches(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		doc, err := ParseMarkdown(rel, content)
		if err != nil {
			return err
		}
		if !doc.HasFrontmatter() {
			l.logger.Debug("Skipping document without frontmatter", slog.String("path", rel))
			return nil
		}

		req, err := doc.AsRequirement()
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load requirements: %w", err)
	}

	l.logger.Info("Loaded requirements",
		slog.String("root", l.root),
		slog.Int("count", len(reqs)))
	return reqs, nil
}

// matches applies the include globs, then the exclude globs.
func (l *Loader) matches(rel string) bool {
	included := false
	for _, pattern := range l.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range l.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}
