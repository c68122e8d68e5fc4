package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mmeshcher/cafebloom/internal/session"
)

// AuthPath задаёт страницу входа, на которую перенаправляются запросы без прав.
const AuthPath = "/auth"

// retryAfterSeconds задаёт паузу перед повтором, пока права администратора не определены.
const retryAfterSeconds = "1"

type guardResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
	Retry    bool   `json:"retry,omitempty"`
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeGuardJSON(w http.ResponseWriter, status int, body guardResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RequireUser пропускает только запросы вошедших пользователей.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := StateFromContext(r.Context())
		if ok {
			if _, signedIn := st.Identity(); signedIn {
				next.ServeHTTP(w, r)
				return
			}
		}
		deny(w, r, http.StatusUnauthorized)
	})
}

// AdminGuard пропускает только администраторов. Пока права не определены, запрос
// не пропускается и не перенаправляется: клиент получает 503 с Retry-After.
func AdminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := StateFromContext(r.Context())
		if !ok {
			deny(w, r, http.StatusUnauthorized)
			return
		}

		switch st.AdminState() {
		case session.AdminGranted:
			next.ServeHTTP(w, r)
		case session.AdminUnknown:
			w.Header().Set("Retry-After", retryAfterSeconds)
			if isAPIRequest(r) {
				writeGuardJSON(w, http.StatusServiceUnavailable, guardResponse{
					Error: "session is still loading",
					Retry: true,
				})
				return
			}
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			status := http.StatusForbidden
			if _, signedIn := st.Identity(); !signedIn {
				status = http.StatusUnauthorized
			}
			deny(w, r, status)
		}
	})
}

// deny отвечает JSON с адресом страницы входа для API и перенаправлением для страниц.
func deny(w http.ResponseWriter, r *http.Request, status int) {
	if isAPIRequest(r) {
		writeGuardJSON(w, status, guardResponse{
			Error:    strings.ToLower(http.StatusText(status)),
			Redirect: AuthPath,
		})
		return
	}
	http.Redirect(w, r, AuthPath, http.StatusSeeOther)
}
