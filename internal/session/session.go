package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/graph"
	"github.com/OFFIS-RIT/kgchat/pkg/query"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CookieName is the cookie that carries the session id.
const CookieName = "kg_session"

type loadedGraph struct {
	graph *graph.Graph
	file  string
}

// State is everything one browser session owns: the graph it has loaded and
// its conversation. The graph is swapped as a whole, so readers always see
// either the previous or the new graph, never a partial one.
type State struct {
	ID           string
	Conversation *query.Conversation

	loaded   atomic.Pointer[loadedGraph]
	lastSeen atomic.Int64
}

// Handle returns the current graph, or the empty handle before the first
// successful load.
func (s *State) Handle() graph.Handle {
	if l := s.loaded.Load(); l != nil {
		return graph.Loaded(l.graph)
	}
	return graph.NoGraph()
}

// SetGraph replaces the session graph. A nil graph is ignored so a failed
// load never clears what was there.
func (s *State) SetGraph(file string, g *graph.Graph) {
	if g == nil {
		return
	}
	s.loaded.Store(&loadedGraph{graph: g, file: file})
}

// Loaded returns the graph and the CSV it came from as one snapshot. ok is
// false before the first successful load.
func (s *State) Loaded() (g *graph.Graph, file string, ok bool) {
	l := s.loaded.Load()
	if l == nil {
		return nil, "", false
	}
	return l.graph, l.file, true
}

func (s *State) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Store keeps sessions in memory. Sessions live until Prune removes them,
// the store is full and they are the least recently seen, or the process
// exits.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	params   query.NewConversationParams
	limit    int
	now      func() time.Time
}

// NewStore returns an empty store. Every new session gets a conversation
// built from params. When limit is positive, creating a session in a full
// store evicts the one seen least recently.
func NewStore(params query.NewConversationParams, limit int) *Store {
	return &Store{
		sessions: make(map[string]*State),
		params:   params,
		limit:    limit,
		now:      time.Now,
	}
}

// Get looks up an existing session.
func (s *Store) Get(id string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if ok {
		st.touch(s.now())
	}
	return st, ok
}

// Create starts a new session with a fresh id.
func (s *Store) Create() (*State, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	st := &State{
		ID:           id,
		Conversation: query.NewConversation(s.params),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.sessions) >= s.limit {
		s.evictOldest()
	}
	st.touch(s.now())
	s.sessions[id] = st
	return st, nil
}

// evictOldest must be called with s.mu held.
func (s *Store) evictOldest() {
	var (
		oldestID string
		oldest   int64
	)
	for id, st := range s.sessions {
		if seen := st.lastSeen.Load(); oldestID == "" || seen < oldest {
			oldestID, oldest = id, seen
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// GetOrCreate returns the session for id, creating one when id is unknown.
// The boolean reports whether a new session was created.
func (s *Store) GetOrCreate(id string) (*State, bool, error) {
	if id != "" {
		if st, ok := s.Get(id); ok {
			return st, false, nil
		}
	}
	st, err := s.Create()
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops sessions not seen for longer than maxIdle and returns how
// many were removed.
func (s *Store) Prune(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.sessions {
		if st.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
