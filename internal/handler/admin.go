package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/service"
)

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type countResponse struct {
	Count int `json:"count"`
}

// Dashboard возвращает сводку для панели администратора.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListOrders возвращает заказы с фильтром по статусу (?status=), префиксу номера (?q=) и числу (?limit=).
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := service.OrderFilter{
		Status: model.OrderStatus(q.Get("status")),
		Search: q.Get("q"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Limit must be a non-negative number"})
			return
		}
		f.Limit = limit
	}

	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// UpdateOrderStatus переводит заказ в следующий статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ListNotifications возвращает уведомления.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListNotifications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UnreadNotifications возвращает число непрочитанных уведомлений.
func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UnreadNotifications(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkNotificationRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings возвращает настройки заведения.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.GetSettings(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// UpdateSettings сохраняет настройки заведения.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.RestaurantSettings
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.service.UpdateSettings(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
