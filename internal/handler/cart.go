package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/cafebloom/internal/model"
)

type addItemRequest struct {
	ItemID string `json:"item_id"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutRequest struct {
	Contact *model.ContactInfo `json:"contact"`
}

// GetCart возвращает содержимое корзины сеанса.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// AddCartItem добавляет позицию меню в корзину или увеличивает её количество.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Item id is required"})
		return
	}

	item, err := h.service.GetMenuItem(r.Context(), req.ItemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	st.Cart.Add(*item)
	h.deps.Metrics.CartOperation("add")
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// SetCartQuantity заменяет количество позиции; ноль и меньше удаляют её.
func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st.Cart.SetQuantity(chi.URLParam(r, "id"), req.Quantity)
	h.deps.Metrics.CartOperation("set_quantity")
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	st.Cart.Remove(chi.URLParam(r, "id"))
	h.deps.Metrics.CartOperation("remove")
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	st.Cart.Clear()
	h.deps.Metrics.CartOperation("clear")
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// OpenCart показывает панель корзины.
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	h.drawer(w, r, "open")
}

// CloseCart скрывает панель корзины.
func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	h.drawer(w, r, "close")
}

// ToggleCart переключает видимость панели корзины.
func (h *Handler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	h.drawer(w, r, "toggle")
}

func (h *Handler) drawer(w http.ResponseWriter, r *http.Request, action string) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	switch action {
	case "open":
		st.Cart.Open()
	case "close":
		st.Cart.Close()
	default:
		st.Cart.Toggle()
	}
	writeJSON(w, http.StatusOK, st.Cart.Snapshot())
}

// Checkout оформляет заказ из корзины. Без контактов вошедшего пользователя
// они берутся из его профиля.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	var userID string
	if identity, signedIn := st.Identity(); signedIn {
		userID = identity.ID
		if req.Contact == nil {
			if p := st.Profile(); p != nil {
				req.Contact = &model.ContactInfo{
					Name:    p.Name,
					Email:   p.Email,
					Phone:   p.Phone,
					Address: p.Address,
				}
			}
		}
	}

	order, err := h.service.Checkout(r.Context(), st.Cart, req.Contact, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
