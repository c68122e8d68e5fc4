// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/mmeshcher/cafebloom/internal/model"
)

// ErrInvalid является общим признаком ошибки валидации.
var ErrInvalid = errors.New("invalid input")

// MaxImageSize ограничивает размер загружаемого изображения.
const MaxImageSize = 5 << 20

// MinPasswordLength задаёт минимальную длину пароля.
const MinPasswordLength = 6

// FieldError описывает ошибку конкретного поля формы.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrInvalid).
func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

func fieldError(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Required проверяет, что значение поля непустое.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fieldError(field, "is required")
	}
	return nil
}

// Email проверяет адрес электронной почты.
func Email(value string) error {
	if err := Required("email", value); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		return fieldError("email", "is not a valid address")
	}
	return nil
}

// Password проверяет длину пароля.
func Password(value string) error {
	if len(value) < MinPasswordLength {
		return fieldError("password", "must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// MenuItem проверяет поля позиции меню.
func MenuItem(item model.MenuItem) error {
	if err := Required("name", item.Name); err != nil {
		return err
	}
	if item.Price < 0 {
		return fieldError("price", "must not be negative")
	}
	if !item.Category.Valid() {
		return fieldError("category", "unknown category %q", item.Category)
	}
	return nil
}

// MenuItemPatch проверяет изменяемые поля позиции меню.
func MenuItemPatch(p model.MenuItemPatch) error {
	if p.Name != nil {
		if err := Required("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Price != nil && *p.Price < 0 {
		return fieldError("price", "must not be negative")
	}
	if p.Category != nil && !p.Category.Valid() {
		return fieldError("category", "unknown category %q", *p.Category)
	}
	return nil
}

// Category проверяет фильтр раздела меню; пустое значение и all допустимы.
func Category(c model.Category) error {
	if c == "" || c == model.CategoryAll || c.Valid() {
		return nil
	}
	return fieldError("category", "unknown category %q", c)
}

// Contact проверяет контактные данные заказа.
func Contact(c *model.ContactInfo) error {
	if c == nil {
		return nil
	}
	if err := Required("name", c.Name); err != nil {
		return err
	}
	return Email(c.Email)
}

// Image проверяет заявленный тип и размер изображения до загрузки.
func Image(contentType string, size int64) error {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if !strings.HasPrefix(mediaType, "image/") || len(mediaType) == len("image/") {
		return fieldError("file", "must be an image")
	}
	if size <= 0 {
		return fieldError("file", "is empty")
	}
	if size > MaxImageSize {
		return fieldError("file", "must not exceed %d MiB", MaxImageSize>>20)
	}
	return nil
}

// imageExtensions сопоставляет типы изображений с расширениями имён объектов.
var imageExtensions = map[string]string{
	"image/jpeg":               "jpg",
	"image/png":                "png",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/avif":               "avif",
	"image/bmp":                "bmp",
	"image/tiff":               "tiff",
	"image/svg+xml":            "svg",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// ImageExtension возвращает расширение имени объекта без точки по типу содержимого.
// Имя файла клиента не используется; неизвестный тип изображения даёт img.
func ImageExtension(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := imageExtensions[mediaType]; ok {
		return ext
	}
	return "img"
}

// OrderStatus проверяет статус заказа; all допустим только как фильтр.
func OrderStatus(s model.OrderStatus, allowAll bool) error {
	if s.Valid() || (allowAll && (s == "" || s == "all")) {
		return nil
	}
	return fieldError("status", "unknown status %q", s)
}

// CartLines проверяет строки заказа.
func CartLines(lines []model.CartLine) error {
	if len(lines) == 0 {
		return fieldError("items", "must not be empty")
	}
	for _, l := range lines {
		if l.ID == "" {
			return fieldError("items", "item id is required")
		}
		if l.Quantity <= 0 {
			return fieldError("items", "quantity of %s must be positive", l.ID)
		}
		if l.Price < 0 {
			return fieldError("items", "price of %s must not be negative", l.ID)
		}
	}
	return nil
}
