package turn

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ent0n29/aurora/internal/ai"
	"github.com/ent0n29/aurora/internal/chat"
	"github.com/ent0n29/aurora/internal/memory"
	"github.com/ent0n29/aurora/internal/observability"
	"github.com/ent0n29/aurora/internal/prompt"
	"github.com/ent0n29/aurora/internal/reliability"
)

// replyPersistTimeout bounds the detached post-reply persistence work so a
// wedged provider cannot pin goroutines forever.
const replyPersistTimeout = 2 * time.Minute

// Options tunes the pipeline. Zero values fall back to the service defaults.
type Options struct {
	ShortTermLimit int
	MemoryTopK     int

	EmbedPolicy    reliability.Policy
	GeneratePolicy reliability.Policy
	MemoryPolicy   reliability.Policy
}

func (o Options) withDefaults() Options {
	if o.ShortTermLimit <= 0 {
		o.ShortTermLimit = 20
	}
	if o.MemoryTopK <= 0 {
		o.MemoryTopK = 3
	}
	if o.EmbedPolicy.MaxAttempts <= 0 {
		o.EmbedPolicy = reliability.Policy{MaxAttempts: 3, PerAttemptTimeout: 20 * time.Second, InitialBackoff: time.Second}
	}
	if o.GeneratePolicy.MaxAttempts <= 0 {
		o.GeneratePolicy = reliability.Policy{MaxAttempts: 3, PerAttemptTimeout: 20 * time.Second, InitialBackoff: 1500 * time.Millisecond}
	}
	if o.MemoryPolicy.MaxAttempts <= 0 {
		o.MemoryPolicy = o.EmbedPolicy
	}
	if o.EmbedPolicy.Retryable == nil {
		o.EmbedPolicy.Retryable = ai.IsRetryable
	}
	if o.GeneratePolicy.Retryable == nil {
		o.GeneratePolicy.Retryable = ai.IsRetryable
	}
	return o
}

// Orchestrator drives one user message through the full pipeline: persist the
// user turn, embed it, refresh and query long-term memory in parallel,
// assemble the prompt, generate the reply, and persist the reply off the
// request path. Resolve always produces exactly one Result.
type Orchestrator struct {
	turns     chat.Log
	memories  memory.Store
	embedder  ai.Embedder
	generator ai.Generator
	metrics   *observability.Metrics
	opts      Options

	bg sync.WaitGroup
}

func NewOrchestrator(turns chat.Log, memories memory.Store, embedder ai.Embedder, generator ai.Generator, metrics *observability.Metrics, opts Options) *Orchestrator {
	return &Orchestrator{
		turns:     turns,
		memories:  memories,
		embedder:  embedder,
		generator: generator,
		metrics:   metrics,
		opts:      opts.withDefaults(),
	}
}

// Wait blocks until detached reply-persistence work has drained. Used on
// shutdown so accepted turns are not lost.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

// Resolve runs the turn pipeline to its single terminal Result. Fatal
// failures (user-turn persistence, embedding, generation) still yield a
// reply-shaped Result carrying the fallback text and an error flag, so the
// transport can keep its one-reply-per-message contract without inspecting
// pipeline internals.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) Result {
	started := time.Now()
	defer func() { o.metrics.ObserveTurnLatency(time.Since(started)) }()

	userTurn, err := o.turns.AppendTurn(ctx, chat.Turn{
		ConversationID: req.ConversationID,
		PrincipalID:    req.PrincipalID,
		Role:           chat.RoleUser,
		Content:        req.Text,
	})
	if err != nil {
		log.Printf("turn: persist user turn conversation=%s: %v", req.ConversationID, err)
		return o.fail(req, ReasonPersistence)
	}

	vector, err := reliability.Do(ctx, o.opts.EmbedPolicy, func(ctx context.Context) ([]float32, error) {
		return o.embedder.Embed(ctx, req.Text)
	})
	if err != nil {
		log.Printf("turn: embed user turn conversation=%s: %v", req.ConversationID, err)
		o.metrics.ProviderErrors.WithLabelValues("embedding", "exhausted").Inc()
		return o.fail(req, ReasonEmbedding)
	}

	matches := o.refreshAndQueryMemory(ctx, userTurn, vector)

	recent, err := o.turns.RecentTurns(ctx, req.ConversationID, o.opts.ShortTermLimit)
	if err != nil {
		// Degrade to the current turn alone rather than failing the reply.
		log.Printf("turn: read recent turns conversation=%s: %v", req.ConversationID, err)
		o.metrics.MemoryEvents.WithLabelValues("history_read_failed").Inc()
		recent = []chat.Turn{userTurn}
	}

	messages := prompt.Assemble(recent, matches)
	reply, err := reliability.Do(ctx, o.opts.GeneratePolicy, func(ctx context.Context) (string, error) {
		return o.generator.Generate(ctx, messages)
	})
	if err != nil {
		log.Printf("turn: generate reply conversation=%s: %v", req.ConversationID, err)
		o.metrics.ProviderErrors.WithLabelValues("generation", "exhausted").Inc()
		return o.fail(req, ReasonGeneration)
	}

	now := time.Now().UTC()
	o.persistReplyDetached(req, reply)
	o.metrics.TurnOutcomes.WithLabelValues("ok").Inc()
	return Result{ConversationID: req.ConversationID, Text: reply, CreatedAt: now}
}

// refreshAndQueryMemory upserts the user turn into long-term memory and
// queries for relevant history concurrently. Both sides are best-effort: a
// failed query degrades to an empty result set and a failed upsert only
// loses one future memory, neither blocks the reply.
func (o *Orchestrator) refreshAndQueryMemory(ctx context.Context, userTurn chat.Turn, vector []float32) []memory.Match {
	record := memory.Record{
		ID:     userTurn.ID,
		Vector: vector,
		Metadata: memory.Metadata{
			ConversationID: userTurn.ConversationID,
			PrincipalID:    userTurn.PrincipalID,
			Text:           userTurn.Content,
		},
	}
	filter := memory.Filter{
		ConversationID: userTurn.ConversationID,
		PrincipalID:    userTurn.PrincipalID,
	}

	upsertErr := make(chan error, 1)
	go func() {
		_, err := reliability.Do(ctx, o.opts.MemoryPolicy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.memories.Upsert(ctx, record)
		})
		upsertErr <- err
	}()

	matches, queryErr := reliability.Do(ctx, o.opts.MemoryPolicy, func(ctx context.Context) ([]memory.Match, error) {
		return o.memories.Query(ctx, vector, o.opts.MemoryTopK, filter)
	})
	if queryErr != nil {
		log.Printf("turn: memory query conversation=%s: %v", userTurn.ConversationID, queryErr)
		o.metrics.MemoryEvents.WithLabelValues("query_failed").Inc()
		matches = nil
	} else {
		o.metrics.MemoryEvents.WithLabelValues("query_ok").Inc()
	}

	if err := <-upsertErr; err != nil {
		log.Printf("turn: memory upsert conversation=%s turn=%s: %v", userTurn.ConversationID, userTurn.ID, err)
		o.metrics.MemoryEvents.WithLabelValues("upsert_failed").Inc()
	} else {
		o.metrics.MemoryEvents.WithLabelValues("upsert_ok").Inc()
	}
	return matches
}

// persistReplyDetached stores the assistant turn and feeds it back into
// long-term memory without holding up the reply. It runs on a background
// context so a client disconnect cannot abort history writes.
func (o *Orchestrator) persistReplyDetached(req Request, reply string) {
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), replyPersistTimeout)
		defer cancel()

		assistantTurn, err := o.turns.AppendTurn(ctx, chat.Turn{
			ConversationID: req.ConversationID,
			PrincipalID:    req.PrincipalID,
			Role:           chat.RoleAssistant,
			Content:        reply,
		})
		if err != nil {
			log.Printf("turn: persist assistant turn conversation=%s: %v", req.ConversationID, err)
			o.metrics.MemoryEvents.WithLabelValues("reply_persist_failed").Inc()
			return
		}

		vector, err := reliability.Do(ctx, o.opts.EmbedPolicy, func(ctx context.Context) ([]float32, error) {
			return o.embedder.Embed(ctx, reply)
		})
		if err != nil {
			log.Printf("turn: embed assistant turn conversation=%s: %v", req.ConversationID, err)
			o.metrics.ProviderErrors.WithLabelValues("embedding", "exhausted").Inc()
			return
		}

		_, err = reliability.Do(ctx, o.opts.MemoryPolicy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.memories.Upsert(ctx, memory.Record{
				ID:     assistantTurn.ID,
				Vector: vector,
				Metadata: memory.Metadata{
					ConversationID: assistantTurn.ConversationID,
					PrincipalID:    assistantTurn.PrincipalID,
					Text:           assistantTurn.Content,
				},
			})
		})
		if err != nil {
			log.Printf("turn: memory upsert assistant turn=%s: %v", assistantTurn.ID, err)
			o.metrics.MemoryEvents.WithLabelValues("upsert_failed").Inc()
			return
		}
		o.metrics.MemoryEvents.WithLabelValues("upsert_ok").Inc()
	}()
}

func (o *Orchestrator) fail(req Request, reason FailureReason) Result {
	o.metrics.TurnOutcomes.WithLabelValues(string(reason)).Inc()
	return Result{
		ConversationID: req.ConversationID,
		Text:           ai.FallbackReply,
		CreatedAt:      time.Now().UTC(),
		Error:          true,
		Reason:         reason,
	}
}
