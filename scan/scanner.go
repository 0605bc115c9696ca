// Package scan extracts requirement annotations from source code. A comment
// containing "Implements: REQ-123" links the surrounding file and line to
// that requirement, supplying the implementation file references the
// coverage engine rolls up.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/reqtrace/reqtrace/requirement"
)

// annotationPattern matches "Implements: REQ-1, REQ-2" inside a comment.
var annotationPattern = regexp.MustCompile(`(?i)\bimplements:\s*([A-Za-z0-9][A-Za-z0-9._-]*(?:\s*,\s*[A-Za-z0-9][A-Za-z0-9._-]*)*)`)

// Annotation links one requirement ID to one source location.
type Annotation struct {
	RequirementID string
	File          requirement.FileRef
}

// DefaultInclude matches the supported source languages.
var DefaultInclude = []string{"**/*.go", "**/*.py"}

// DefaultExclude skips directories that never hold first-party sources.
var DefaultExclude = []string{".git/**", "node_modules/**", "vendor/**", "**/testdata/**"}

// Scanner walks source trees and extracts annotations from code comments
// using tree-sitter, so annotations inside string literals are not matched.
type Scanner struct {
	repoRoot string
	include  []string
	exclude  []string
	logger   *slog.Logger
	parsers  map[string]*sitter.Parser
}

// NewScanner creates a Scanner rooted at the repository root, with parsers
// for the supported languages.
func NewScanner(repoRoot string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}

	goParser := sitter.NewParser()
	goParser.SetLanguage(golang.GetLanguage())
	pyParser := sitter.NewParser()
	pyParser.SetLanguage(python.GetLanguage())

	return &Scanner{
		repoRoot: repoRoot,
		include:  DefaultInclude,
		exclude:  DefaultExclude,
		logger:   logger,
		parsers: map[string]*sitter.Parser{
			".go": goParser,
			".py": pyParser,
		},
	}
}

// WithPatterns overrides the include/exclude globs. Patterns use doublestar
// syntax and match paths relative to the repository root.
func (s *Scanner) WithPatterns(include, exclude []string) *Scanner {
	if len(include) > 0 {
		s.include = include
	}
	if len(exclude) > 0 {
		s.exclude = exclude
	}
	return s
}

// Scan walks the repository and extracts annotations from every matching
// source file, in walk order.
func (s *Scanner) Scan(ctx context.Context) ([]Annotation, error) {
	var annotations []Annotation

	err := filepath.WalkDir(s.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.repoRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !s.matches(rel) {
			return nil
		}

		found, err := s.ScanFile(ctx, path)
		if err != nil {
			// A file that fails to parse is skipped, not fatal: one broken
			// source file must not lose the rest of the annotations.
			s.logger.Warn("Failed to scan source file",
				slog.String("path", rel),
				slog.String("error", err.Error()))
			return nil
		}
		annotations = append(annotations, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}

	s.logger.Info("Scanned source annotations",
		slog.String("root", s.repoRoot),
		slog.Int("count", len(annotations)))
	return annotations, nil
}

// ScanFile parses one source file and extracts its annotations. Reported
// paths are relative to the repository root.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]Annotation, error) {
	parser, ok := s.parsers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", filepath.Ext(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}
	defer tree.Close()

	rel, err := filepath.Rel(s.repoRoot, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	var annotations []Annotation
	collectComments(tree.RootNode(), content, func(text string, line int) {
		for _, id := range parseAnnotation(text) {
			annotations = append(annotations, Annotation{
				RequirementID: id,
				File:          requirement.FileRef{Path: rel, Line: line},
			})
		}
	})
	return annotations, nil
}

// collectComments walks the syntax tree and invokes fn for every comment
// node with its text and 1-based line number.
func collectComments(node *sitter.Node, content []byte, fn func(text string, line int)) {
	if node.Type() == "comment" {
		fn(string(content[node.StartByte():node.EndByte()]), int(node.StartPoint().Row)+1)
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectComments(node.Child(i), content, fn)
	}
}

// parseAnnotation extracts requirement IDs from one comment.
func parseAnnotation(text string) []string {
	match := annotationPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	parts := strings.Split(match[1], ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// matches applies the include globs, then the exclude globs.
func (s *Scanner) matches(rel string) bool {
	included := false
	for _, pattern := range s.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range s.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}
