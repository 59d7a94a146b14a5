package handler

import (
	"net/http"
	"net/url"
	"strings"

	wsInfra "github.com/dreschagin/self-configuration/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
	"github.com/gorilla/websocket"
)

// WebSocketHandler подключает браузер к рассылке профилей и к разговору
type WebSocketHandler struct {
	hub            *wsInfra.Hub
	chat           wsInfra.ChatProcessor
	logger         *logger.Logger
	allowedOrigins map[string]struct{}
	authConfig     middleware.AuthConfig
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler создает новый handler.
// chat может быть nil: тогда chat-сообщения клиентов игнорируются.
func NewWebSocketHandler(
	hub *wsInfra.Hub,
	chat wsInfra.ChatProcessor,
	allowedOrigins []string,
	authConfig middleware.AuthConfig,
	logger *logger.Logger,
) *WebSocketHandler {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			originMap[trimmed] = struct{}{}
		}
	}

	handler := &WebSocketHandler{
		hub:            hub,
		chat:           chat,
		logger:         logger,
		allowedOrigins: originMap,
		authConfig:     authConfig,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     handler.checkOrigin,
	}

	return handler
}

// checkOrigin пропускает страницу insights с того же хоста и origin'ы из списка
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if strings.EqualFold(parsed.Host, r.Host) {
		return true
	}

	if _, ok := h.allowedOrigins[parsed.Scheme+"://"+parsed.Host]; ok {
		return true
	}
	_, wildcard := h.allowedOrigins["*"]
	return wildcard
}

// HandleConnection поднимает соединение и привязывает к нему сессию разговора.
// Сессия берется из cookie, выданной login, или из ?session=; иначе создается новая.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ValidateRequestAuth(r, h.authConfig); err != nil {
		h.logger.Warn("WebSocket unauthorized",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		middleware.WriteUnauthorized(w)
		return
	}

	sessionID := middleware.SessionID(r)
	if sessionID == "" {
		sessionID = middleware.NewSessionID()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", err, "session_id", sessionID)
		return
	}

	client := wsInfra.NewClient(h.hub, conn, h.chat, sessionID, h.logger)
	h.hub.Register(client)
	h.logger.Debug("WebSocket client connected", "session_id", sessionID)

	go client.WritePump()
	go client.ReadPump()
	client.Greet()
}
