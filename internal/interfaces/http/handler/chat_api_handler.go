package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

const maxChatBodyBytes = 16 * 1024

// ChatProcessor обрабатывает одно сообщение разговора
type ChatProcessor interface {
	Process(ctx context.Context, req conversation.Request) (conversation.Reply, error)
}

// ChatAPIHandler принимает сообщения разговора по HTTP
type ChatAPIHandler struct {
	chat   ChatProcessor
	logger *logger.Logger
}

func NewChatAPIHandler(chat ChatProcessor, log *logger.Logger) *ChatAPIHandler {
	return &ChatAPIHandler{chat: chat, logger: log}
}

func (h *ChatAPIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	defer r.Body.Close()

	var req conversation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" && req.Intent == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message or intent is required")
		return
	}
	// Сессия из login cookie важнее поля запроса
	if sessionID := middleware.SessionID(r); sessionID != "" {
		req.SessionID = sessionID
	}

	reply, err := h.chat.Process(r.Context(), req)
	if err != nil {
		h.logger.Error("Chat processing failed", err, "session_id", req.SessionID)
		middleware.WriteError(w, statusFor(err), "failed to process message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, reply)
}
