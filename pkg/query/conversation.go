package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/graph"
)

// FallbackAnswer is recorded as the assistant turn whenever the answerer
// fails or returns no content.
const FallbackAnswer = "Sorry, the language model is currently unable to answer."

var errEmptyAnswer = errors.New("answerer returned no content")

// Exchange is the outcome of one question.
type Exchange struct {
	Question  common.Turn     `json:"question"`
	Answer    common.Turn     `json:"answer"`
	Retrieval graph.Retrieval `json:"retrieval"`
	Fallback  bool            `json:"fallback"`
}

// Conversation is an ordered dialog of user and assistant turns.
//
// Every Ask appends exactly two turns: the question and then either the
// answer or the fallback text. Asks on the same conversation run one at a
// time so turns never interleave.
type Conversation struct {
	mu    sync.Mutex
	turns []common.Turn

	answerer Answerer
	fallback string
	tracer   Tracer
}

// NewConversationParams configures a Conversation. An empty Fallback uses
// FallbackAnswer.
type NewConversationParams struct {
	Answerer Answerer
	Fallback string
	Tracer   Tracer
}

func NewConversation(params NewConversationParams) *Conversation {
	fallback := params.Fallback
	if strings.TrimSpace(fallback) == "" {
		fallback = FallbackAnswer
	}
	return &Conversation{
		turns:    []common.Turn{},
		answerer: params.Answerer,
		fallback: fallback,
		tracer:   params.Tracer,
	}
}

// Ask records question, retrieves context for it from h and records the
// answer. It never fails: answerer errors, panics and empty answers all
// produce the fallback turn.
func (c *Conversation) Ask(ctx context.Context, h graph.Handle, question string) Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, graphContext := c.begin(h, question)

	start := time.Now()
	answer, err := c.callAnswerer(ctx, graphContext, question)
	return c.finish(ex, answer, err, start)
}

// AskStream is Ask for answerers that stream. onDelta receives every piece
// of content as it arrives. If the answerer cannot stream, the full answer
// is delivered as a single piece.
func (c *Conversation) AskStream(ctx context.Context, h graph.Handle, question string, onDelta func(string)) Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, graphContext := c.begin(h, question)
	start := time.Now()

	streamer, ok := c.answerer.(StreamAnswerer)
	if !ok {
		answer, err := c.callAnswerer(ctx, graphContext, question)
		if err == nil && strings.TrimSpace(answer) != "" && onDelta != nil {
			onDelta(answer)
		}
		return c.finish(ex, answer, err, start)
	}

	answer, err := collectStream(ctx, streamer, graphContext, question, onDelta)
	return c.finish(ex, answer, err, start)
}

func (c *Conversation) begin(h graph.Handle, question string) (Exchange, string) {
	ex := Exchange{Question: common.Turn{Role: common.RoleUser, Content: question}}
	c.turns = append(c.turns, ex.Question)

	ex.Retrieval = graph.Retrieve(h, question)
	recordRetrieval(c.tracer, ex.Retrieval)
	return ex, ex.Retrieval.Context()
}

func (c *Conversation) finish(ex Exchange, answer string, err error, start time.Time) Exchange {
	duration := time.Since(start).Milliseconds()
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errEmptyAnswer
	}

	if err != nil {
		ex.Fallback = true
		answer = c.fallback
		if c.tracer != nil {
			c.tracer.Record(TraceEvent{Kind: TraceEventFallback, DurationMs: duration, Error: err.Error()})
		}
	} else if c.tracer != nil {
		c.tracer.Record(TraceEvent{Kind: TraceEventAnswer, DurationMs: duration})
	}

	ex.Answer = common.Turn{Role: common.RoleAssistant, Content: answer}
	c.turns = append(c.turns, ex.Answer)
	return ex
}

func (c *Conversation) callAnswerer(ctx context.Context, graphContext, question string) (answer string, err error) {
	if c.answerer == nil {
		return "", errors.New("no answerer configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answerer panicked: %v", r)
		}
	}()
	return c.answerer.Answer(ctx, graphContext, question)
}

func collectStream(
	ctx context.Context,
	streamer StreamAnswerer,
	graphContext string,
	question string,
	onDelta func(string),
) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("answerer panicked: %v", r)
		}
	}()

	events, err := streamer.AnswerStream(ctx, graphContext, question)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for ev := range events {
		switch ev.Type {
		case "content":
			sb.WriteString(ev.Content)
			if onDelta != nil {
				onDelta(ev.Content)
			}
		case "error":
			err = ev.Err
			if err == nil {
				err = errors.New("answer stream failed")
			}
		}
	}
	if err != nil {
		return "", err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	return sb.String(), nil
}

// History returns a copy of all turns in order.
func (c *Conversation) History() []common.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]common.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear removes all turns.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = []common.Turn{}
}
