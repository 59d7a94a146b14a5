package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

const maxLoginBodyBytes = 4 * 1024

// ConversationSessions хранит контекст разговоров по сессиям
type ConversationSessions interface {
	SessionContext(sessionID string) map[string]interface{}
	ForgetSession(sessionID string) int
}

// AuthAPIHandler открывает и закрывает сессию браузера.
// Login выдает auth cookie и сессию разговора, которую подхватывают /api/v1/chat и /ws.
// Logout забывает контекст разговора этой сессии.
type AuthAPIHandler struct {
	authConfig    middleware.AuthConfig
	sessions      ConversationSessions
	sessionMaxAge time.Duration
	logger        *logger.Logger
}

type authLoginRequest struct {
	Token string `json:"token"`
}

// NewAuthAPIHandler создает handler. sessions может быть nil: тогда logout не трогает разговоры.
func NewAuthAPIHandler(authConfig middleware.AuthConfig, sessions ConversationSessions, sessionMaxAge time.Duration, log *logger.Logger) *AuthAPIHandler {
	if sessionMaxAge <= 0 {
		sessionMaxAge = 12 * time.Hour
	}
	return &AuthAPIHandler{
		authConfig:    authConfig,
		sessions:      sessions,
		sessionMaxAge: sessionMaxAge,
		logger:        log,
	}
}

func (h *AuthAPIHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var token string
	if h.authConfig.Enabled {
		r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
		defer r.Body.Close()

		var req authLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		token = strings.TrimSpace(req.Token)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.authConfig.BearerToken)) != 1 {
			h.logger.Warn("Auth login failed", "remote_addr", r.RemoteAddr)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
	}

	// Повторный login продолжает тот же разговор
	sessionID := middleware.SessionID(r)
	resumed := sessionID != ""
	if !resumed {
		sessionID = middleware.NewSessionID()
	}

	secureCookie := r.TLS != nil
	maxAge := int(h.sessionMaxAge.Seconds())
	if h.authConfig.Enabled {
		middleware.WriteAuthCookie(w, token, secureCookie, maxAge)
	}
	middleware.WriteSessionCookie(w, sessionID, secureCookie, maxAge)

	h.logger.Info("Conversation session opened", "session_id", sessionID, "resumed", resumed)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"auth_enabled": h.authConfig.Enabled,
		"session_id":   sessionID,
		"resumed":      resumed,
	})
}

func (h *AuthAPIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := middleware.SessionID(r)
	forgotten := 0
	if sessionID != "" && h.sessions != nil {
		forgotten = h.sessions.ForgetSession(sessionID)
		h.logger.Info("Conversation session closed", "session_id", sessionID, "forgotten_keys", forgotten)
	}

	secureCookie := r.TLS != nil
	middleware.ClearAuthCookie(w, secureCookie)
	middleware.ClearSessionCookie(w, secureCookie)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"session_id":             sessionID,
		"forgotten_context_keys": forgotten,
	})
}

// Status сообщает состояние авторизации и ключи контекста текущего разговора
func (h *AuthAPIHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := middleware.ValidateRequestAuth(r, h.authConfig)
	sessionID := middleware.SessionID(r)

	contextKeys := []string{}
	if err == nil && sessionID != "" && h.sessions != nil {
		for key := range h.sessions.SessionContext(sessionID) {
			contextKeys = append(contextKeys, key)
		}
		sort.Strings(contextKeys)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"auth_enabled":   h.authConfig.Enabled,
		"authenticated":  err == nil,
		"cookie_present": hasAuthCookie(r),
		"session_id":     sessionID,
		"context_keys":   contextKeys,
	})
}

func hasAuthCookie(r *http.Request) bool {
	c, err := r.Cookie(middleware.AuthCookieName)
	if err != nil {
		return false
	}
	return strings.TrimSpace(c.Value) != ""
}
