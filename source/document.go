// Package source loads requirement documents from disk and maps them to the
// requirement data model. One markdown file with YAML frontmatter defines one
// requirement; the body is the requirement description.
package source

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reqtrace/reqtrace/requirement"
)

// Document is a parsed requirement document.
type Document struct {
	// Path is the file path relative to the requirements root.
	Path string `json:"path"`

	// Content is the raw document content.
	Content string `json:"content"`

	// Frontmatter is the raw YAML frontmatter block, without delimiters.
	Frontmatter string `json:"frontmatter,omitempty"`

	// Body is the markdown content after the frontmatter.
	Body string `json:"body"`

	// BodyLine is the 1-based line where the body starts.
	BodyLine int `json:"body_line"`
}

// HasFrontmatter returns true if the document carries a frontmatter block.
func (d *Document) HasFrontmatter() bool {
	return d.Frontmatter != ""
}

// docFrontmatter is the typed shape of a requirement frontmatter block.
type docFrontmatter struct {
	ID                  string   `yaml:"id"`
	Title               string   `yaml:"title"`
	Level               string   `yaml:"level"`
	Status              string   `yaml:"status"`
	Implements          []string `yaml:"implements"`
	ImplementationFiles []struct {
		Path string `yaml:"path"`
		Line int    `yaml:"line"`
	} `yaml:"implementation_files"`
}

// AsRequirement maps the document to a validated requirement record.
// Malformed documents are rejected here, before they reach the graph engine.
func (d *Document) AsRequirement() (*requirement.Requirement, error) {
	if !d.HasFrontmatter() {
		return nil, fmt.Errorf("%s: missing requirement frontmatter", d.Path)
	}

	var fm docFrontmatter
	if err := yaml.Unmarshal([]byte(d.Frontmatter), &fm); err != nil {
		return nil, fmt.Errorf("%s: parse frontmatter: %w", d.Path, err)
	}

	req := &requirement.Requirement{
		ID:          fm.ID,
		Title:       fm.Title,
		Level:       requirement.Level(fm.Level),
		Status:      fm.status(),
		Implements:  fm.Implements,
		Description: d.Body,
		SourcePath:  d.Path,
		SourceLine:  d.BodyLine,
	}
	for _, f := range fm.ImplementationFiles {
		req.ImplementationFiles = append(req.ImplementationFiles, requirement.FileRef{
			Path: f.Path,
			Line: f.Line,
		})
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path, err)
	}
	return req, nil
}

// status applies the default status for documents that omit it.
func (fm *docFrontmatter) status() requirement.Status {
	if fm.Status == "" {
		return requirement.StatusDraft
	}
	return requirement.Status(fm.Status)
}
