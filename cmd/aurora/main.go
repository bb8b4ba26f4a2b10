package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ent0n29/aurora/internal/ai"
	"github.com/ent0n29/aurora/internal/chat"
	"github.com/ent0n29/aurora/internal/config"
	"github.com/ent0n29/aurora/internal/httpapi"
	"github.com/ent0n29/aurora/internal/memory"
	"github.com/ent0n29/aurora/internal/observability"
	"github.com/ent0n29/aurora/internal/reliability"
	"github.com/ent0n29/aurora/internal/session"
	"github.com/ent0n29/aurora/internal/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	chatStore, err := chat.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("chat store init failed: %v", err)
	}
	defer chatStore.Close()

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer memoryStore.Close()

	embedder, generator, err := ai.NewClients(cfg.AIProvider, ai.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIChatModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
		EmbeddingDim:   cfg.EmbeddingDim,
		Temperature:    cfg.Temperature,
	})
	if err != nil {
		log.Fatalf("ai client init failed: %v", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveConnections.Set(float64(sessions.ActiveCount()))
	})

	orchestrator := turn.NewOrchestrator(chatStore, memoryStore, embedder, generator, metrics, turn.Options{
		ShortTermLimit: cfg.ShortTermLimit,
		MemoryTopK:     cfg.MemoryTopK,
		EmbedPolicy: reliability.Policy{
			MaxAttempts:       cfg.EmbedMaxAttempts,
			PerAttemptTimeout: cfg.EmbedTimeout,
			InitialBackoff:    cfg.EmbedBackoff,
			Retryable:         ai.IsRetryable,
		},
		GeneratePolicy: reliability.Policy{
			MaxAttempts:       cfg.GenerateMaxAttempts,
			PerAttemptTimeout: cfg.GenerateTimeout,
			InitialBackoff:    cfg.GenerateBackoff,
			Retryable:         ai.IsRetryable,
		},
	})

	api := httpapi.New(cfg, chatStore, sessions, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	// Accepted turns may still be persisting replies off the request path.
	orchestrator.Wait()

	log.Printf("shutdown complete")
}
