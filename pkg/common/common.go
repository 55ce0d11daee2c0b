package common

// Triple is one labeled relationship read from a CSV row. Duplicates are
// allowed and are kept as separate edges when a graph is built.
type Triple struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// SerializedEdge is the display form of a single graph edge.
type SerializedEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// SerializedGraph is a read-only snapshot of a graph used for display.
// Nodes and edges keep the iteration order of the graph they came from.
//
// It is never parsed back into a graph; CSV stays the only input format.
type SerializedGraph struct {
	Nodes []string         `json:"nodes"`
	Edges []SerializedEdge `json:"edges"`
}

// Role identifies the author of a dialog turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
