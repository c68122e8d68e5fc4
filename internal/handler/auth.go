package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/session"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// Login выполняет вход и сохраняет личность пользователя в подписанной cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.deps.Sessions.Login(r.Context(), st, req.Email, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	identity, _ := st.Identity()
	if err := h.deps.Auth.SetIdentityCookie(w, identity); err != nil {
		h.logger.Error("set identity cookie error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Could not sign in", Retry: true})
		return
	}

	writeJSON(w, http.StatusOK, st.View())
}

// Register создаёт учётную запись. Вход после регистрации выполняется отдельно.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.deps.Sessions.Register(r.Context(), req.Email, req.Password, session.RegisterInfo{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, successResponse{Success: true})
}

// Logout завершает сеанс пользователя. При ошибке сервиса данных пользователь
// остаётся в системе; корзина сеанса сохраняется.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	if err := h.deps.Sessions.Logout(r.Context(), st); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.deps.Auth.ClearIdentityCookie(w)
	writeJSON(w, http.StatusOK, st.View())
}

// Session возвращает текущую личность, профиль и статус администратора.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.View())
}
