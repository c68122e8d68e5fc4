package handler

import (
	"net/http"

	"github.com/mmeshcher/cafebloom/internal/model"
)

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateProfile изменяет профиль вошедшего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	p, err := h.deps.Sessions.UpdateProfile(r.Context(), st, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetUserOrders возвращает заказы вошедшего пользователя.
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	identity, _ := st.Identity()
	orders, err := h.service.ListUserOrders(r.Context(), identity.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ChangePassword меняет пароль вошедшего пользователя.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var req passwordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.deps.Sessions.ChangePassword(r.Context(), st, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
