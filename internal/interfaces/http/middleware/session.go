package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// SessionCookieName хранит идентификатор сессии разговора.
// Сессия не дает доступа: ее выдает login, а проверяет только auth token.
const SessionCookieName = "selfconfig_session"

const maxSessionIDLength = 64

// SessionID возвращает сессию разговора из cookie или query (?session=) для WebSocket.
// Пустая строка означает, что сессии нет.
func SessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if id := normalizeSessionID(c.Value); id != "" {
			return id
		}
	}
	return normalizeSessionID(r.URL.Query().Get("session"))
}

// NewSessionID выдает новый идентификатор сессии разговора
func NewSessionID() string {
	return uuid.NewString()
}

func WriteSessionCookie(w http.ResponseWriter, sessionID string, secure bool, maxAgeSeconds int) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAgeSeconds,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	WriteSessionCookie(w, "", secure, -1)
}

func normalizeSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxSessionIDLength {
		return ""
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return id
}
