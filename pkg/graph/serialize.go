package graph

import "github.com/OFFIS-RIT/kgchat/pkg/common"

// Serialize converts the graph into its display mapping. Nodes and edges
// keep graph order, so counts always equal NodeCount and EdgeCount.
func (g *Graph) Serialize() common.SerializedGraph {
	out := common.SerializedGraph{
		Nodes: make([]string, 0, len(g.nodes)),
		Edges: make([]common.SerializedEdge, 0, len(g.edges)),
	}
	out.Nodes = append(out.Nodes, g.nodes...)
	for _, e := range g.edges {
		out.Edges = append(out.Edges, common.SerializedEdge{
			Source: e.Source,
			Target: e.Target,
			Label:  e.Label,
		})
	}
	return out
}
