package scan

import (
	"log/slog"

	"github.com/reqtrace/reqtrace/requirement"
)

// Merge attaches scanned annotations to their requirements, after any
// implementation files declared in the requirement documents themselves.
// Duplicate path:line references are dropped; annotations naming unknown
// requirement IDs are logged and skipped.
func Merge(reqs []*requirement.Requirement, annotations []Annotation, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[string]*requirement.Requirement, len(reqs))
	seen := make(map[string]map[requirement.FileRef]bool, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
		refs := make(map[requirement.FileRef]bool, len(r.ImplementationFiles))
		for _, f := range r.ImplementationFiles {
			refs[f] = true
		}
		seen[r.ID] = refs
	}

	for _, a := range annotations {
		req, ok := byID[a.RequirementID]
		if !ok {
			logger.Warn("Annotation references unknown requirement",
				slog.String("requirement", a.RequirementID),
				slog.String("file", a.File.String()))
			continue
		}
		if seen[a.RequirementID][a.File] {
			continue
		}
		seen[a.RequirementID][a.File] = true
		req.ImplementationFiles = append(req.ImplementationFiles, a.File)
	}
}
