package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/aurora/internal/chat"
)

type createChatRequest struct {
	PrincipalID string `json:"principal_id"`
	Title       string `json:"title"`
}

type renameChatRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.PrincipalID) == "" {
		respondError(w, http.StatusBadRequest, "missing_principal_id", "principal_id is required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New chat"
	}

	conv, err := s.store.CreateConversation(r.Context(), req.PrincipalID, req.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	principalID := strings.TrimSpace(r.URL.Query().Get("principal_id"))
	if principalID == "" {
		respondError(w, http.StatusBadRequest, "missing_principal_id", "query parameter principal_id is required")
		return
	}

	convs, err := s.store.ListConversations(r.Context(), principalID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"chats": convs})
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := s.cfg.ShortTermLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.store.RecentTurns(r.Context(), id, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req renameChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "missing_title", "title is required")
		return
	}

	conv, err := s.store.RenameConversation(r.Context(), id, req.Title)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "chat_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteConversation(r.Context(), id); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			respondError(w, http.StatusNotFound, "chat_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
