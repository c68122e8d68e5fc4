package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/service"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

// ListMenu возвращает позиции меню раздела (?category=) с поиском по названию (?search=).
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListMenuItems(r.Context(), service.MenuFilter{
		Category: model.Category(q.Get("category")),
		Search:   q.Get("search"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetMenuItem возвращает позицию меню.
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateMenuItem добавляет позицию меню.
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var item model.MenuItem
	if !decodeJSON(w, r, &item) {
		return
	}
	item.ID = ""

	created, err := h.service.CreateMenuItem(r.Context(), item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateMenuItem изменяет позицию меню.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var patch model.MenuItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.service.UpdateMenuItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMenuItem удаляет позицию меню.
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMenuItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadImage принимает изображение блюда из поля file формы multipart.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxImageSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File is required and must not exceed 5 MiB"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := validation.Image(contentType, header.Size); err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not read file"})
		return
	}

	url, err := h.service.UploadImage(r.Context(), header.Filename, contentType, data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
