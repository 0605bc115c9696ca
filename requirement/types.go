// Package requirement defines the requirement data model shared by the
// graph engine, the document loaders, and the report renderers.
package requirement

import (
	"fmt"
	"time"
)

// Level classifies a requirement within the document hierarchy.
type Level string

// Requirement levels, from product intent down to implementation detail.
const (
	LevelPRD Level = "PRD"
	LevelOPS Level = "OPS"
	LevelDEV Level = "DEV"
)

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelPRD, LevelOPS, LevelDEV:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown requirement level: %q", s)
	}
}

// Status tracks the lifecycle state of a requirement.
type Status string

// Requirement statuses.
const (
	StatusActive     Status = "Active"
	StatusDraft      Status = "Draft"
	StatusDeprecated Status = "Deprecated"
)

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusDraft, StatusDeprecated:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown requirement status: %q", s)
	}
}

// CoverageStatus classifies how completely a requirement and its subtree
// are implemented.
type CoverageStatus string

// Coverage classifications.
const (
	CoverageFull          CoverageStatus = "full"
	CoveragePartial       CoverageStatus = "partial"
	CoverageUnimplemented CoverageStatus = "unimplemented"
)

// FileRef points to a location in a source file that implements a requirement.
type FileRef struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// String returns the path:line form used in reports.
func (f FileRef) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.Path, f.Line)
	}
	return f.Path
}

// ChangeInfo holds the change-state facts supplied by the git collaborator.
// All fields are derived from version-control history; the graph engine
// treats them as opaque booleans.
type ChangeInfo struct {
	// IsNew indicates the requirement's source file has no committed history.
	IsNew bool `json:"is_new,omitempty"`

	// IsModified indicates the file changed relative to the base branch.
	IsModified bool `json:"is_modified,omitempty"`

	// IsMoved indicates the file was renamed relative to the base branch.
	IsMoved bool `json:"is_moved,omitempty"`

	// IsUncommitted indicates the working tree has local edits to the file.
	IsUncommitted bool `json:"is_uncommitted,omitempty"`

	// IsBranchChanged indicates the file differs from the merge base of the
	// upstream branch.
	IsBranchChanged bool `json:"is_branch_changed,omitempty"`

	// LastCommit is the hash of the most recent commit touching the file.
	LastCommit string `json:"last_commit,omitempty"`

	// LastChangedAt is the committer timestamp of that commit.
	LastChangedAt time.Time `json:"last_changed_at,omitzero"`
}

// Requirement is one node in the traceability graph. Requirements are
// immutable for the duration of one report generation; the store is read
// once at the start of a run.
type Requirement struct {
	// ID uniquely identifies the requirement within the store.
	ID string `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Level is the document level (PRD, OPS, DEV).
	Level Level `json:"level"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Implements lists the parent requirement IDs this requirement
	// satisfies. Empty means the requirement is a root.
	Implements []string `json:"implements,omitempty"`

	// ImplementationFiles are the source locations that implement this
	// requirement, in discovery order.
	ImplementationFiles []FileRef `json:"implementation_files,omitempty"`

	// Description is the markdown body of the requirement document.
	Description string `json:"description,omitempty"`

	// SourcePath and SourceLine locate the requirement's own definition.
	SourcePath string `json:"source_path,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`

	// Change carries the git-derived change facts.
	Change ChangeInfo `json:"change,omitzero"`
}

// Validate checks that the requirement record is well formed. The store
// rejects malformed records before they reach the graph engine.
func (r *Requirement) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("requirement ID is required")
	}
	if r.Title == "" {
		return fmt.Errorf("requirement %s: title is required", r.ID)
	}
	if _, err := ParseLevel(string(r.Level)); err != nil {
		return fmt.Errorf("requirement %s: %w", r.ID, err)
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return fmt.Errorf("requirement %s: %w", r.ID, err)
	}
	seen := make(map[string]bool, len(r.Implements))
	for _, parent := range r.Implements {
		if parent == "" {
			return fmt.Errorf("requirement %s: empty implements reference", r.ID)
		}
		if seen[parent] {
			return fmt.Errorf("requirement %s: duplicate implements reference %s", r.ID, parent)
		}
		seen[parent] = true
	}
	return nil
}

// IsRoot reports whether the requirement declares no parents.
func (r *Requirement) IsRoot() bool {
	return len(r.Implements) == 0
}

// HasImplementation reports whether at least one implementation file is
// attached to the requirement itself.
func (r *Requirement) HasImplementation() bool {
	return len(r.ImplementationFiles) > 0
}
