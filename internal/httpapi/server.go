package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/aurora/internal/chat"
	"github.com/ent0n29/aurora/internal/config"
	"github.com/ent0n29/aurora/internal/observability"
	"github.com/ent0n29/aurora/internal/protocol"
	"github.com/ent0n29/aurora/internal/session"
	"github.com/ent0n29/aurora/internal/turn"
)

// Resolver runs one user message to its single terminal result.
type Resolver interface {
	Resolve(ctx context.Context, req turn.Request) turn.Result
}

type Server struct {
	cfg      config.Config
	store    chat.Store
	sessions *session.Manager
	resolver Resolver
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, store chat.Store, sessions *session.Manager, resolver Resolver, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		resolver: resolver,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// omit Origin and pass through.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chats", s.handleCreateChat)
	r.Get("/v1/chats", s.handleListChats)
	r.Get("/v1/chats/{id}/turns", s.handleListTurns)
	r.Patch("/v1/chats/{id}", s.handleRenameChat)
	r.Delete("/v1/chats/{id}", s.handleDeleteChat)

	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"active_sessions":  s.sessions.ActiveCount(),
		"short_term_limit": s.cfg.ShortTermLimit,
		"memory_top_k":     s.cfg.MemoryTopK,
	})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	principalID := strings.TrimSpace(r.URL.Query().Get("principal_id"))
	if principalID == "" {
		respondError(w, http.StatusBadRequest, "missing_principal_id", "query parameter principal_id is required")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := s.sessions.Create(principalID)
	s.metrics.ActiveConnections.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer func() {
		_, _ = s.sessions.End(sess.ID)
		s.metrics.ActiveConnections.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
		return nil
	})

	var turns sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.emit(ctx, outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}

		s.metrics.WSMessages.WithLabelValues("inbound", string(protocol.TypeUserMessage)).Inc()
		_ = s.sessions.RecordTurn(sess.ID)

		// Each message runs its own pipeline so a slow provider never blocks
		// the read loop. The turn context is detached from the connection: a
		// dropped client must not abort persistence, only the final emit
		// becomes a no-op.
		turns.Add(1)
		go func(req turn.Request) {
			defer turns.Done()
			res := s.resolver.Resolve(context.WithoutCancel(ctx), req)
			s.emit(ctx, outbound, protocol.AIResponse{
				Type:           protocol.TypeAIResponse,
				ConversationID: res.ConversationID,
				Content:        res.Text,
				Timestamp:      res.CreatedAt,
				Error:          res.Error,
				Reason:         string(res.Reason),
			})
		}(turn.Request{
			ConversationID: msg.ConversationID,
			PrincipalID:    principalID,
			Text:           msg.Content,
		})
	}

	cancel()
	turns.Wait()
	<-writerDone
}

// emit queues an outbound frame, giving up silently once the connection
// context is gone.
func (s *Server) emit(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.AIResponse:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
