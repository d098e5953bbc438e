package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Exporter renders a compiled Plan as a diagram, for inspection and
// documentation rather than anything the engine itself consumes.
type Exporter struct {
	plan *Plan
}

// NewExporter returns an Exporter for p.
func NewExporter(p *Plan) *Exporter { return &Exporter{plan: p} }

// MermaidOptions configures DrawMermaid.
type MermaidOptions struct {
	Direction string // flowchart direction, e.g. "TD", "LR"; default "TD"
}

// DrawMermaid renders the plan as a Mermaid flowchart.
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions renders the plan as a Mermaid flowchart using the
// given options.
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	ids := make([]string, 0, len(e.plan.Nodes))
	for _, n := range e.plan.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := e.plan.NodeByID(id)
		label := fmt.Sprintf("%s\\n(%s)", n.DisplayName, n.Kind)
		switch n.Kind {
		case KindSource:
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, label))
		case KindSink:
			sb.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", id, label))
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		}
	}

	edges := append([]*Edge{}, e.plan.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromNode != edges[j].FromNode {
			return edges[i].FromNode < edges[j].FromNode
		}
		return edges[i].ToNode < edges[j].ToNode
	})
	for _, edge := range edges {
		label := edge.ToPort
		if label == "" || label == "in" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", edge.FromNode, edge.ToNode))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", edge.FromNode, label, edge.ToNode))
		}
	}

	for _, id := range ids {
		n := e.plan.NodeByID(id)
		switch n.Kind {
		case KindSource:
			sb.WriteString(fmt.Sprintf("    style %s fill:#90EE90\n", id))
		case KindSink:
			sb.WriteString(fmt.Sprintf("    style %s fill:#FFB6C1\n", id))
		}
	}

	return sb.String()
}

// DrawDOT renders the plan as a Graphviz DOT digraph.
func (e *Exporter) DrawDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [shape=box];\n")

	ids := make([]string, 0, len(e.plan.Nodes))
	for _, n := range e.plan.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := e.plan.NodeByID(id)
		shape := "box"
		fill := "white"
		switch n.Kind {
		case KindSource:
			shape, fill = "ellipse", "lightgreen"
		case KindSink:
			shape, fill = "ellipse", "lightpink"
		}
		sb.WriteString(fmt.Sprintf("    %s [label=\"%s\\n(%s)\", shape=%s, style=filled, fillcolor=%s];\n",
			id, n.DisplayName, n.Kind, shape, fill))
	}

	edges := append([]*Edge{}, e.plan.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromNode != edges[j].FromNode {
			return edges[i].FromNode < edges[j].FromNode
		}
		return edges[i].ToNode < edges[j].ToNode
	})
	for _, edge := range edges {
		if edge.ToPort == "" || edge.ToPort == "in" {
			sb.WriteString(fmt.Sprintf("    %s -> %s;\n", edge.FromNode, edge.ToNode))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -> %s [label=\"%s\"];\n", edge.FromNode, edge.ToNode, edge.ToPort))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}
