package graph

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/graph.html
var templateFS embed.FS

var graphTemplate = template.Must(template.ParseFS(templateFS, "templates/graph.html"))

// RenderOptions controls the standalone HTML page produced by RenderHTML.
type RenderOptions struct {
	Title      string
	Height     string
	Background string
}

// DefaultRenderOptions matches the main graph view of the web UI.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Title:      "Knowledge Graph",
		Height:     "500px",
		Background: "#ffffff",
	}
}

type visNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type visEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
	Title string `json:"title"`
}

// RenderHTML writes an interactive vis-network page for g to w.
func RenderHTML(w io.Writer, g *Graph, opts RenderOptions) error {
	def := DefaultRenderOptions()
	if opts.Title == "" {
		opts.Title = def.Title
	}
	if opts.Height == "" {
		opts.Height = def.Height
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}

	s := g.Serialize()
	nodes := make([]visNode, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes = append(nodes, visNode{ID: n, Label: n})
	}
	edges := make([]visEdge, 0, len(s.Edges))
	for _, e := range s.Edges {
		edges = append(edges, visEdge{From: e.Source, To: e.Target, Label: e.Label, Title: e.Label})
	}

	data := struct {
		Title      string
		Height     template.CSS
		Background template.CSS
		Nodes      []visNode
		Edges      []visEdge
	}{
		Title:      opts.Title,
		Height:     template.CSS(opts.Height),
		Background: template.CSS(opts.Background),
		Nodes:      nodes,
		Edges:      edges,
	}

	if err := graphTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}
	return nil
}
