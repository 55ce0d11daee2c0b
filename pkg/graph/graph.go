package graph

import (
	"context"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	csvloader "github.com/OFFIS-RIT/kgchat/pkg/loader/csv"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

// Edge is a directed, labeled connection between two nodes.
type Edge struct {
	Source string
	Target string
	Label  string
}

// Graph is a directed multigraph of string nodes and labeled edges.
//
// Nodes are unique and kept in first-insertion order; edges are kept in
// insertion order and may repeat between the same pair of nodes. Nothing is
// ever removed. Iteration order is therefore fully determined by the input,
// which keeps serialization and retrieval reproducible.
//
// A Graph is built by a single goroutine and only read after it has been
// handed out, so it carries no locks.
type Graph struct {
	nodes []string
	index map[string]int
	edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: []string{},
		index: make(map[string]int),
		edges: []Edge{},
	}
}

// AddNode adds a node unless it already exists. It reports whether the
// node was new.
func (g *Graph) AddNode(label string) bool {
	if _, ok := g.index[label]; ok {
		return false
	}
	g.index[label] = len(g.nodes)
	g.nodes = append(g.nodes, label)
	return true
}

// AddEdge appends a source → target edge, adding missing endpoints first.
func (g *Graph) AddEdge(source, target, label string) {
	g.AddNode(source)
	g.AddNode(target)
	g.edges = append(g.edges, Edge{Source: source, Target: target, Label: label})
}

// AddTriple adds the relationship described by t.
func (g *Graph) AddTriple(t common.Triple) {
	g.AddEdge(t.Source, t.Target, t.Relation)
}

// Build creates a fresh graph from triples.
func Build(triples []common.Triple) *Graph {
	g := New()
	for _, t := range triples {
		g.AddTriple(t)
	}
	return g
}

// Load parses a triple CSV from r and builds a fresh graph from it.
// On error no graph is returned, so callers can keep what they had.
func Load(r io.Reader) (*Graph, error) {
	triples, err := csvloader.ParseTriples(r)
	if err != nil {
		return nil, err
	}
	return Build(triples), nil
}

// LoadFile reads a triple CSV through its loader and builds a graph.
func LoadFile(ctx context.Context, file loader.GraphFile) (*Graph, error) {
	if file.Loader == nil {
		return nil, fmt.Errorf("%w: no loader for %s", csvloader.ErrFileRead, file.ID)
	}
	res, err := csvloader.NewCSVGraphLoader(file.Loader).GetTriples(ctx, file)
	if err != nil {
		return nil, err
	}
	g := Build(res.Triples)
	logger.Info("[Graph] Built graph",
		"file", file.ID,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"skipped_rows", res.Skipped,
	)
	return g, nil
}

// Nodes returns the node labels in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Triples returns every edge as a triple, in edge order.
func (g *Graph) Triples() []common.Triple {
	out := make([]common.Triple, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.Triple())
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) HasNode(label string) bool {
	_, ok := g.index[label]
	return ok
}

// EdgesBetween returns all source → target edges in insertion order.
func (g *Graph) EdgesBetween(source, target string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

// Triple converts the edge back into the row it came from.
func (e Edge) Triple() common.Triple {
	return common.Triple{Source: e.Source, Target: e.Target, Relation: e.Label}
}

// Handle is either empty, meaning no graph has been loaded yet, or holds a
// fully built graph. The zero value is empty.
type Handle struct {
	g *Graph
}

// NoGraph returns the empty handle.
func NoGraph() Handle {
	return Handle{}
}

// Loaded wraps g. A nil graph yields the empty handle.
func Loaded(g *Graph) Handle {
	return Handle{g: g}
}

// Graph returns the wrapped graph and whether there is one.
func (h Handle) Graph() (*Graph, bool) {
	return h.g, h.g != nil
}

func (h Handle) IsLoaded() bool {
	return h.g != nil
}
