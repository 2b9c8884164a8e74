package middleware

import (
	"net/http"
	"time"

	"github.com/chatsync/internal/logger"
)

// RequestLog пишет method, path, статус и пользователя; медленные запросы: через LogDuration.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap, ok := w.(*responseWriter)
		if !ok {
			wrap = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}
		next.ServeHTTP(wrap, r)
		logger.Debugf("http %s %s %d user=%s", r.Method, r.URL.Path, wrap.status, MaskUserID(r.Header.Get(UserIDHeader)))
		logger.LogDuration("http "+r.Method+" "+r.URL.Path, start)
	})
}
