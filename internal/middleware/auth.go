// Package middleware содержит HTTP middleware для сервиса кафе.
package middleware

import (
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/cafebloom/internal/model"
)

type contextKey string

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
	authIssuer     = "cafebloom"
)

type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware подписывает и проверяет cookie с личностью пользователя.
type AuthMiddleware struct {
	secretKey []byte
	secure    bool
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа используется случайный, и cookie не переживают перезапуск.
func NewAuthMiddleware(secret string, secure bool) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		secure:    secure,
		now:       time.Now,
	}
}

// SetIdentityCookie сохраняет личность пользователя в подписанном cookie.
func (a *AuthMiddleware) SetIdentityCookie(w http.ResponseWriter, identity model.Identity) error {
	now := a.now()
	claims := identityClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    authIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authCookieTTL)),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(authCookieTTL),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearIdentityCookie удаляет cookie с личностью.
func (a *AuthMiddleware) ClearIdentityCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IdentityFromRequest извлекает личность из cookie запроса.
func (a *AuthMiddleware) IdentityFromRequest(r *http.Request) (model.Identity, bool) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return model.Identity{}, false
	}
	identity, err := a.parseToken(cookie.Value)
	if err != nil {
		return model.Identity{}, false
	}
	return identity, true
}

func (a *AuthMiddleware) parseToken(value string) (model.Identity, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(authIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return model.Identity{}, err
	}
	if claims.Subject == "" {
		return model.Identity{}, errors.New("token without subject")
	}
	return model.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
