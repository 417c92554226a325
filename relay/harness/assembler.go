package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// Request is one inbound message plus the caller's enrichment choices.
type Request struct {
	ProviderID      string
	AssistantName   string
	UserMessage     string
	ThreadID        string // empty starts a new thread
	Prompt          string
	EnableWebSearch bool
	FilePaths       []string
}

// Reply is a successful answer.
type Reply struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	ThreadID  string `json:"thread_id"`
	Message   string `json:"message"`
}

// Result is either a Reply or a tagged failure, never both.
type Result struct {
	Reply *Reply    `json:"reply,omitempty"`
	Kind  ErrorKind `json:"kind,omitempty"`
	Error string    `json:"error,omitempty"`
}

// OK reports whether the result carries a reply.
func (r Result) OK() bool { return r.Reply != nil }

// Payload renders the result as {id, created_at, thread_id, message} or {error}.
func (r Result) Payload() map[string]any {
	if r.Reply == nil {
		return map[string]any{"error": r.Error}
	}
	return map[string]any{
		"id":         r.Reply.ID,
		"created_at": r.Reply.CreatedAt,
		"thread_id":  r.Reply.ThreadID,
		"message":    r.Reply.Message,
	}
}

const rateLimitKey = "assemble"

// Assembler runs the context-assembly pipeline: pick one enrichment, load
// the thread, call the provider, persist the exchange.
type Assembler struct {
	providers ports.ProviderResolver
	store     ports.ConversationStore
	enrichers []Enricher
	builder   *PromptBuilder
	limiter   ports.RateLimiter
	tracer    ports.Tracer
	logger    zerolog.Logger
	options   ports.Options

	newThreadID func() string
}

// NewAssembler creates an Assembler. Nil limiter and tracer disable those concerns.
func NewAssembler(
	providers ports.ProviderResolver,
	store ports.ConversationStore,
	enrichers []Enricher,
	builder *PromptBuilder,
	limiter ports.RateLimiter,
	tracer ports.Tracer,
	logger zerolog.Logger,
	options ports.Options,
) *Assembler {
	if builder == nil {
		builder = NewPromptBuilder()
	}
	if limiter == nil {
		limiter = &noOpRateLimiter{}
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	if store == nil {
		store = &noOpStore{}
	}
	return &Assembler{
		providers:   providers,
		store:       store,
		enrichers:   enrichers,
		builder:     builder,
		limiter:     limiter,
		tracer:      tracer,
		logger:      logger,
		options:     options,
		newThreadID: NewThreadID,
	}
}

// NewThreadID mints a time-ordered thread id.
func NewThreadID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("thread_%d", time.Now().UnixNano())
	}
	return "thread_" + id.String()
}

// Assemble never panics and never returns an error value: every failure,
// including a recovered panic, comes back as a Result with a Kind.
func (a *Assembler) Assemble(ctx context.Context, req Request) Result {
	var (
		reply *Reply
		err   error
		pc    panics.Catcher
	)
	pc.Try(func() { reply, err = a.assemble(ctx, &req) })
	if r := pc.Recovered(); r != nil {
		err = fail(KindInternal, "assemble", fmt.Errorf("panic: %v", r.Value))
		a.logger.Error().Str("stack", string(r.Stack)).Msg("recovered panic while assembling")
	}

	if err != nil {
		kind := KindOf(err)
		a.logger.Error().
			Err(err).
			Str("kind", string(kind)).
			Str("provider_id", req.ProviderID).
			Str("assistant", req.AssistantName).
			Str("thread_id", req.ThreadID).
			Msg("request failed")
		return Result{Kind: kind, Error: "Error processing request: " + err.Error()}
	}
	return Result{Reply: reply}
}

func (a *Assembler) assemble(ctx context.Context, req *Request) (reply *Reply, err error) {
	release, err := a.limiter.Acquire(ctx, rateLimitKey)
	if err != nil {
		return nil, fail(KindRateLimit, "acquire permit", err)
	}
	defer release()

	ctx, finish := a.tracer.StartSpan(ctx, "assemble", map[string]any{
		"provider_id": req.ProviderID,
		"assistant":   req.AssistantName,
		"thread_id":   req.ThreadID,
		"web_search":  req.EnableWebSearch,
		"file_count":  len(req.FilePaths),
	})
	defer func() { finish(err) }()

	provider, err := a.providers.Resolve(req.ProviderID)
	if err != nil {
		return nil, fail(KindConfig, "resolve provider", err)
	}

	enrichment := Enrichment{UserMessage: req.UserMessage}
	enricher := SelectEnricher(a.enrichers, req)
	if enricher != nil {
		enrichment, err = enricher.Enrich(ctx, req)
		if err != nil {
			if KindOf(err) == KindInternal {
				err = fail(KindInternal, "enrich "+enricher.Name(), err)
			}
			return nil, err
		}
	}
	a.tracer.Event(ctx, "enrichment_selected", map[string]any{
		"enricher":   enricherName(enricher),
		"system_len": len(enrichment.System),
	})

	threadID := req.ThreadID
	history := []ports.Turn{}
	if threadID != "" {
		history, err = a.store.Load(ctx, threadID)
		if err != nil {
			if errors.Is(err, ports.ErrInvalidThreadID) {
				return nil, fail(KindConfig, "load thread", err)
			}
			return nil, fail(KindStore, "load thread", err)
		}
	} else {
		threadID = a.newThreadID()
	}
	a.tracer.Event(ctx, "context_loaded", map[string]any{
		"thread_id": threadID,
		"turns":     len(history),
	})

	userTurn := ports.Turn{Role: ports.RoleUser, Content: enrichment.UserMessage}
	input := a.builder.Build(enrichment.System, history, userTurn, map[string]string{
		"thread_id":   threadID,
		"provider_id": req.ProviderID,
		"assistant":   req.AssistantName,
		"enricher":    enricherName(enricher),
	})

	completion, err := provider.Complete(ctx, input, a.options)
	if err != nil {
		return nil, fail(KindCompletion, "complete", err)
	}
	event := map[string]any{"response_id": completion.ID}
	if completion.Usage != nil {
		event["total_tokens"] = completion.Usage.TotalTokens
	}
	a.tracer.Event(ctx, "completion_received", event)

	// Both sides of the exchange are recorded in one write, only after a reply.
	assistantTurn := ports.Turn{Role: ports.RoleAssistant, Content: completion.Text}
	if err := a.store.Append(ctx, threadID, userTurn, assistantTurn); err != nil {
		return nil, fail(KindStore, "persist turns", err)
	}
	a.tracer.Event(ctx, "turns_persisted", map[string]any{"thread_id": threadID, "turns": 2})

	a.logger.Info().
		Str("thread_id", threadID).
		Str("enricher", enricherName(enricher)).
		Str("response_id", completion.ID).
		Msg("request answered")

	return &Reply{
		ID:        completion.ID,
		CreatedAt: completion.Created,
		ThreadID:  threadID,
		Message:   completion.Text,
	}, nil
}

// ClearThread drops one thread's history.
func (a *Assembler) ClearThread(ctx context.Context, threadID string) error {
	return a.store.Clear(ctx, threadID)
}

// ClearAll drops every thread's history.
func (a *Assembler) ClearAll(ctx context.Context) error {
	return a.store.ClearAll(ctx)
}

func enricherName(e Enricher) string {
	if e == nil {
		return "none"
	}
	return e.Name()
}
