package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/reqtrace/reqtrace/graph"
	"github.com/reqtrace/reqtrace/requirement"
)

// htmlNode is one instance with its nested children, rebuilt from the flat
// pre-order sequence for recursive template rendering. Each node keeps its
// own instance identity so every occurrence collapses independently.
type htmlNode struct {
	Instance graph.Instance
	Req      *requirement.Requirement
	Children []*htmlNode
}

// Title returns the display title for the node.
func (n *htmlNode) Title() string {
	switch n.Instance.Kind {
	case graph.KindRequirement:
		if n.Req != nil {
			return fmt.Sprintf("%s %s", n.Instance.RequirementID, n.Req.Title)
		}
		return n.Instance.RequirementID
	case graph.KindImplementationFile:
		return n.Instance.File.String()
	case graph.KindCycleMarker:
		return "Cycle: " + strings.Join(n.Instance.Path, " -> ")
	default:
		return "Depth limit: " + strings.Join(n.Instance.Path, " -> ")
	}
}

// CSSClass returns the style hooks for the node. Coverage-to-color mapping
// lives in the stylesheet, not in the graph engine.
func (n *htmlNode) CSSClass() string {
	class := string(n.Instance.Kind)
	if n.Instance.Kind == graph.KindRequirement {
		class += " coverage-" + string(n.Instance.Coverage)
		if n.Req != nil {
			if n.Req.Change.IsNew {
				class += " changed-new"
			}
			if n.Req.Change.IsModified || n.Req.Change.IsUncommitted {
				class += " changed-modified"
			}
			if n.Req.Change.IsMoved {
				class += " changed-moved"
			}
		}
	}
	return class
}

// Meta returns the level/status line for requirement nodes.
func (n *htmlNode) Meta() string {
	if n.Instance.Kind != graph.KindRequirement || n.Req == nil {
		return ""
	}
	return fmt.Sprintf("%s / %s / %s", n.Req.Level, n.Req.Status, n.Instance.Coverage)
}

const htmlReport = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1f2430; }
header p { color: #5c6370; }
details { margin-left: 1.25rem; border-left: 1px solid #d8dce4; padding-left: .5rem; }
details.root { margin-left: 0; border-left: none; }
summary { cursor: pointer; padding: .1rem .25rem; }
.leaf { margin-left: 1.25rem; padding: .1rem .25rem; color: #5c6370; font-family: monospace; }
.meta { color: #8a90a0; font-size: .85em; margin-left: .5rem; }
.coverage-full > summary { color: #176e2c; }
.coverage-partial > summary { color: #9a6700; }
.coverage-unimplemented > summary { color: #b42318; }
.cycleMarker, .depthMarker { color: #b42318; font-weight: 600; }
.changed-new > summary::after { content: " new"; color: #176e2c; font-size: .75em; }
.changed-modified > summary::after { content: " modified"; color: #9a6700; font-size: .75em; }
</style>
</head>
<body>
<header>
<h1>{{.Report.Title}}</h1>
<p>Generated {{.Report.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} |
{{.Report.Summary.Requirements}} requirements |
{{.Report.Summary.Full}} full / {{.Report.Summary.Partial}} partial / {{.Report.Summary.Unimplemented}} unimplemented
{{- if .Report.Summary.Cycles}} | {{.Report.Summary.Cycles}} cycle(s){{end}}
{{- if .Report.Summary.Orphans}} | {{.Report.Summary.Orphans}} orphan(s){{end}}</p>
</header>
<main>
{{- range .Roots}}
{{template "node" .}}
{{- end}}
</main>
</body>
</html>
{{define "node"}}
{{- if .Children}}
<details class="{{.CSSClass}}{{if eq .Instance.Indent 0}} root{{end}}" id="i{{.Instance.InstanceID}}" open>
<summary>{{.Title}}{{with .Meta}}<span class="meta">{{.}}</span>{{end}}</summary>
{{- range .Children}}
{{template "node" .}}
{{- end}}
</details>
{{- else}}
<div class="leaf {{.CSSClass}}" id="i{{.Instance.InstanceID}}">{{.Title}}{{with .Meta}}<span class="meta">{{.}}</span>{{end}}</div>
{{- end}}
{{end}}`

var htmlTemplate = template.Must(template.New("report").Parse(htmlReport))

// WriteHTML renders the report as a self-contained collapsible HTML page.
func (r *Report) WriteHTML(w io.Writer) error {
	roots := buildTree(r)
	data := struct {
		Title  string
		Report *Report
		Roots  []*htmlNode
	}{r.Title, r, roots}

	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// buildTree reconstructs the nesting from the flat instance list using the
// parent instance references.
func buildTree(r *Report) []*htmlNode {
	nodes := make(map[int]*htmlNode, len(r.Instances))
	var roots []*htmlNode
	for _, in := range r.Instances {
		node := &htmlNode{
			Instance: in,
			Req:      r.Requirements[in.RequirementID],
		}
		nodes[in.InstanceID] = node
		if parent, ok := nodes[in.ParentInstanceID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}
