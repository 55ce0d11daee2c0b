package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/OFFIS-RIT/kgchat/pkg/common"
)

// NotFoundContext is the context text handed to the answerer when retrieval
// produced nothing, either because no graph is loaded or nothing matched.
const NotFoundContext = "No relevant information found in the knowledge graph."

// Status tells apart the three outcomes of a retrieval.
type Status string

const (
	StatusNoGraph Status = "no_graph"
	StatusNoMatch Status = "no_match"
	StatusMatched Status = "matched"
)

// Retrieval is the result of matching a query against a graph.
type Retrieval struct {
	Status  Status          `json:"status"`
	Triples []common.Triple `json:"triples"`
	Nodes   []string        `json:"nodes"`
}

// Found reports whether anything matched.
func (r Retrieval) Found() bool {
	return r.Status == StatusMatched
}

// Context renders the matched triples one per line as
// "source -[relation]-> target". Empty results render NotFoundContext.
func (r Retrieval) Context() string {
	if !r.Found() || len(r.Triples) == 0 {
		return NotFoundContext
	}
	var b strings.Builder
	for i, t := range r.Triples {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Source)
		b.WriteString(" -[")
		b.WriteString(t.Relation)
		b.WriteString("]-> ")
		b.WriteString(t.Target)
	}
	return b.String()
}

// Matcher decides whether a label is relevant to a query.
//
// Matching is case-insensitive using Unicode case folding. The query is
// split into tokens at every rune that is not a letter, digit or mark. A
// label matches when any token is a substring of the label, or when the
// whole label (at least two runes) occurs inside the query. The second rule
// covers scripts written without spaces.
//
// A Matcher is not safe for concurrent use.
type Matcher struct {
	fold   cases.Caser
	query  string
	tokens []string
}

// NewMatcher prepares query for matching.
func NewMatcher(query string) *Matcher {
	m := &Matcher{fold: cases.Fold()}
	m.query = m.fold.String(strings.TrimSpace(query))
	seen := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(m.query, isSeparator) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		m.tokens = append(m.tokens, tok)
	}
	return m
}

// Empty reports whether the query has no searchable content.
func (m *Matcher) Empty() bool {
	return len(m.tokens) == 0
}

// Tokens returns the folded query tokens in query order.
func (m *Matcher) Tokens() []string {
	out := make([]string, len(m.tokens))
	copy(out, m.tokens)
	return out
}

// Match reports whether label is relevant to the query.
func (m *Matcher) Match(label string) bool {
	if m.Empty() || label == "" {
		return false
	}
	folded := m.fold.String(label)
	for _, tok := range m.tokens {
		if strings.Contains(folded, tok) {
			return true
		}
	}
	return utf8.RuneCountInString(folded) >= 2 && strings.Contains(m.query, folded)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
}

// Retrieve scans h for nodes and edges relevant to query.
//
// An edge is returned when its relation label matches or when either of its
// endpoints matches. Identical edges are reported once. Triples come back
// in edge insertion order and nodes in node insertion order, so repeated
// calls on the same graph give identical results. Retrieval never fails:
// a missing graph and an empty result are reported through Status.
func Retrieve(h Handle, query string) Retrieval {
	g, ok := h.Graph()
	if !ok {
		return Retrieval{Status: StatusNoGraph, Triples: []common.Triple{}, Nodes: []string{}}
	}
	return g.Retrieve(query)
}

// Retrieve runs the retrieval against g.
func (g *Graph) Retrieve(query string) Retrieval {
	res := Retrieval{Status: StatusNoMatch, Triples: []common.Triple{}, Nodes: []string{}}
	m := NewMatcher(query)
	if m.Empty() {
		return res
	}

	matched := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		if m.Match(n) {
			matched[n] = true
			res.Nodes = append(res.Nodes, n)
		}
	}

	seen := make(map[Edge]struct{})
	for _, e := range g.edges {
		if !matched[e.Source] && !matched[e.Target] && !m.Match(e.Label) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		res.Triples = append(res.Triples, e.Triple())
	}

	if len(res.Nodes) > 0 || len(res.Triples) > 0 {
		res.Status = StatusMatched
	}
	return res
}
