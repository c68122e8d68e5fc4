package middleware

import (
	"context"
	"net/http"

	"github.com/mmeshcher/cafebloom/internal/session"
)

const (
	stateKey          contextKey = "session"
	sessionCookieName            = "sid"
)

// SessionMiddleware привязывает к запросу сеанс просмотра и восстанавливает в нём
// личность из подписанного cookie до проверки прав.
type SessionMiddleware struct {
	registry *session.Registry
	manager  *session.Manager
	auth     *AuthMiddleware
}

// NewSessionMiddleware создаёт middleware сеансов.
func NewSessionMiddleware(registry *session.Registry, manager *session.Manager, auth *AuthMiddleware) *SessionMiddleware {
	return &SessionMiddleware{registry: registry, manager: manager, auth: auth}
}

// Middleware находит или создаёт сеанс и кладёт его в контекст запроса.
func (s *SessionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st *session.State
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			st, _ = s.registry.Get(cookie.Value)
		}
		if st == nil {
			st = s.registry.Create()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    st.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.auth.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if identity, ok := s.auth.IdentityFromRequest(r); ok {
			s.manager.Restore(st, identity)
		}
		s.manager.EnsureProfile(r.Context(), st)

		ctx := context.WithValue(r.Context(), stateKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StateFromContext извлекает сеанс просмотра из контекста запроса.
func StateFromContext(ctx context.Context) (*session.State, bool) {
	st, ok := ctx.Value(stateKey).(*session.State)
	return st, ok && st != nil
}

// WithState кладёт сеанс в контекст.
func WithState(ctx context.Context, st *session.State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}
