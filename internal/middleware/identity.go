package middleware

import (
	"net/http"
	"strings"
)

const (
	UserIDHeader = "X-User-ID"
	maxUserIDLen = 128
)

// Identity берёт пользователя из X-User-ID (для WebSocket: из ?user_id=).
// Аутентификация выполняется перед сервисом, сюда приходит уже проверенный id.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if userID == "" || len(userID) > maxUserIDLen {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
