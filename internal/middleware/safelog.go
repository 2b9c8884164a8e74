package middleware

import "strings"

// MaskUserID сокращает id пользователя в логах запросов.
func MaskUserID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
