package query

import (
	"sync"

	"github.com/OFFIS-RIT/kgchat/pkg/graph"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

type TraceEventKind string

const (
	TraceEventRetrieval TraceEventKind = "retrieval"
	TraceEventAnswer    TraceEventKind = "answer"
	TraceEventFallback  TraceEventKind = "fallback"
)

// TraceEvent describes one step of a conversation turn.
type TraceEvent struct {
	Kind TraceEventKind

	Status     graph.Status
	Triples    int
	Nodes      int
	DurationMs int64
	Error      string
}

// Tracer is a sink for conversation events.
type Tracer interface {
	Record(event TraceEvent)
}

// LogTracer writes every event to the debug log and fallbacks as errors.
type LogTracer struct{}

func (LogTracer) Record(event TraceEvent) {
	switch event.Kind {
	case TraceEventRetrieval:
		logger.Debug("[Query] Retrieval", "status", event.Status, "triples", event.Triples, "nodes", event.Nodes)
	case TraceEventAnswer:
		logger.Debug("[Query] Answer", "duration_ms", event.DurationMs)
	case TraceEventFallback:
		logger.Error("[Query] Answer failed, using fallback", "duration_ms", event.DurationMs, "err", event.Error)
	}
}

// RecordingTracer keeps events in memory.
type RecordingTracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (r *RecordingTracer) Record(event TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns the recorded events in order.
func (r *RecordingTracer) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

func recordRetrieval(t Tracer, res graph.Retrieval) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{
		Kind:    TraceEventRetrieval,
		Status:  res.Status,
		Triples: len(res.Triples),
		Nodes:   len(res.Nodes),
	})
}
