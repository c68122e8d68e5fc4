package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
)

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string   `json:"access_token"`
	User        authUser `json:"user"`
}

// SignIn выполняет вход по email и паролю.
func (c *Client) SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error) {
	resp, err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/auth/v1/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, nil)
	if err != nil {
		if isAuthRejection(err) {
			return nil, backend.ErrInvalidCredentials
		}
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.User.ID == "" {
		return nil, fmt.Errorf("token response without user")
	}

	return &backend.AuthSession{
		Identity:    model.Identity{ID: tok.User.ID, Email: tok.User.Email},
		AccessToken: tok.AccessToken,
	}, nil
}

// SignUp регистрирует пользователя; имя и телефон передаются в метаданные пользователя.
func (c *Client) SignUp(ctx context.Context, req backend.SignUpRequest) error {
	payload := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]string{
			"name":  req.Name,
			"phone": req.Phone,
		},
	}

	_, err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/auth/v1/signup", "", payload, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == "user_already_exists" ||
			strings.Contains(strings.ToLower(apiErr.Message), "already registered")) {
			return fmt.Errorf("%w: %s", backend.ErrUserExists, req.Email)
		}
		return err
	}
	return nil
}

// SignOut отзывает токен доступа пользователя.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	_, err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", accessToken, nil, nil)
	return err
}

// UpdatePassword меняет пароль пользователя от его имени.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, userID, password string) error {
	if accessToken == "" {
		return fmt.Errorf("update password for %s: access token required", userID)
	}
	_, err := c.sendJSON(ctx, http.MethodPut, c.baseURL+"/auth/v1/user", accessToken,
		map[string]string{"password": password}, nil)
	return err
}

func isAuthRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "invalid_grant", "invalid_credentials", "email_not_confirmed":
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized
}
