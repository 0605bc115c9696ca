package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/reqtrace/reqtrace/graph"
	"github.com/reqtrace/reqtrace/requirement"
)

// coverageBadge maps coverage to the marker shown in markdown output.
// How coverage maps to presentation is a renderer decision, not the graph
// engine's.
func coverageBadge(status requirement.CoverageStatus) string {
	switch status {
	case requirement.CoverageFull:
		return "[x]"
	case requirement.CoveragePartial:
		return "[~]"
	default:
		return "[ ]"
	}
}

// changeFlags renders the git-derived change facts for one requirement.
func changeFlags(info requirement.ChangeInfo) string {
	var flags []string
	if info.IsNew {
		flags = append(flags, "new")
	}
	if info.IsModified {
		flags = append(flags, "modified")
	}
	if info.IsMoved {
		flags = append(flags, "moved")
	}
	if info.IsUncommitted {
		flags = append(flags, "uncommitted")
	}
	if info.IsBranchChanged {
		flags = append(flags, "branch")
	}
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}

// WriteMarkdown renders the flattened view as a nested markdown list.
func (r *Report) WriteMarkdown(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("# " + r.Title + "\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Requirements: %d (full %d, partial %d, unimplemented %d)\n\n",
		r.Summary.Requirements, r.Summary.Full, r.Summary.Partial, r.Summary.Unimplemented))

	if len(r.Resolution.Cycles) > 0 || len(r.Resolution.Orphans) > 0 {
		sb.WriteString("## Modeling issues\n\n")
		for _, cycle := range r.Resolution.Cycles {
			sb.WriteString("- Cycle: " + strings.Join(cycle, " -> ") + " -> " + cycle[0] + "\n")
		}
		for _, orphan := range r.Resolution.Orphans {
			sb.WriteString("- Orphan: " + orphan + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Trace\n\n")
	for _, in := range r.Instances {
		indent := strings.Repeat("  ", in.Indent)
		switch in.Kind {
		case graph.KindRequirement:
			line := fmt.Sprintf("%s- %s **%s**", indent, coverageBadge(in.Coverage), in.RequirementID)
			if req := r.Requirements[in.RequirementID]; req != nil {
				line += " " + req.Title
				line += fmt.Sprintf(" `%s/%s`", req.Level, req.Status)
				line += changeFlags(req.Change)
			}
			sb.WriteString(line + "\n")
		case graph.KindImplementationFile:
			sb.WriteString(fmt.Sprintf("%s- `%s`\n", indent, in.File.String()))
		case graph.KindCycleMarker:
			sb.WriteString(fmt.Sprintf("%s- CYCLE: %s\n", indent, strings.Join(in.Path, " -> ")))
		case graph.KindDepthMarker:
			sb.WriteString(fmt.Sprintf("%s- DEPTH LIMIT: %s\n", indent, strings.Join(in.Path, " -> ")))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
