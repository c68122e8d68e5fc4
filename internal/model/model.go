// Package model содержит доменные сущности сервиса кафе.
package model

import (
	"time"
)

// Category описывает раздел меню.
type Category string

const (
	CategoryAll      Category = "all"
	CategoryStarters Category = "starters"
	CategoryMain     Category = "main"
	CategoryDrinks   Category = "drinks"
	CategoryDesserts Category = "desserts"
)

// Categories перечисляет разделы меню в порядке отображения.
var Categories = []Category{CategoryStarters, CategoryMain, CategoryDrinks, CategoryDesserts}

// Valid сообщает, входит ли раздел в закрытый набор категорий блюд.
func (c Category) Valid() bool {
	switch c {
	case CategoryStarters, CategoryMain, CategoryDrinks, CategoryDesserts:
		return true
	}
	return false
}

// MenuItem представляет позицию меню.
type MenuItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price"`
	ImageURL    string    `json:"image_url"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// MenuItemPatch содержит изменяемые поля позиции меню. Nil означает «не менять».
type MenuItemPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Price       *Money    `json:"price,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    *Category `json:"category,omitempty"`
}

// Apply возвращает копию позиции с применёнными изменениями.
func (p MenuItemPatch) Apply(item MenuItem) MenuItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.ImageURL != nil {
		item.ImageURL = *p.ImageURL
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	return item
}

// CartLine описывает строку корзины: снимок позиции меню и количество.
type CartLine struct {
	MenuItem
	Quantity int `json:"quantity"`
}

// Subtotal возвращает стоимость строки.
func (l CartLine) Subtotal() Money {
	return l.Price.Mul(l.Quantity)
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusCompleted OrderStatus = "completed"
)

// rank задаёт порядок статусов; статусы двигаются только вперёд.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 1
	case OrderStatusPreparing:
		return 2
	case OrderStatusCompleted:
		return 3
	}
	return 0
}

// Valid сообщает, является ли статус известным.
func (s OrderStatus) Valid() bool {
	return s.rank() > 0
}

// CanMoveTo сообщает, допустим ли переход в указанный статус.
func (s OrderStatus) CanMoveTo(next OrderStatus) bool {
	return s.Valid() && next.Valid() && next.rank() >= s.rank()
}

// Next возвращает следующий статус или пустую строку для завершённого заказа.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderStatusPending:
		return OrderStatusPreparing
	case OrderStatusPreparing:
		return OrderStatusCompleted
	}
	return ""
}

// ContactInfo содержит контактные данные оформившего заказ.
type ContactInfo struct {
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Order описывает заказ с зафиксированными на момент оформления строками.
type Order struct {
	ID        string       `json:"id"`
	Items     []CartLine   `json:"items"`
	Status    OrderStatus  `json:"status"`
	Contact   *ContactInfo `json:"user_info,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Total возвращает сумму заказа.
func (o Order) Total() Money {
	var total Money
	for _, l := range o.Items {
		total += l.Subtotal()
	}
	return total
}

// ItemCount возвращает суммарное количество позиций в заказе.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}

// Identity описывает аутентифицированного пользователя.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile описывает профиль пользователя.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	IsAdmin bool   `json:"is_admin"`
}

// ProfilePatch содержит изменяемые поля профиля. Признак администратора через него не меняется.
type ProfilePatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Empty сообщает, что патч ничего не меняет.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil
}

// Apply возвращает копию профиля с применёнными изменениями.
func (p ProfilePatch) Apply(profile Profile) Profile {
	if p.Name != nil {
		profile.Name = *p.Name
	}
	if p.Email != nil {
		profile.Email = *p.Email
	}
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	if p.Address != nil {
		profile.Address = *p.Address
	}
	return profile
}

// Notification описывает уведомление для администратора.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// RestaurantSettings содержит публичные сведения о заведении.
type RestaurantSettings struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// PopularItem описывает позицию меню и число её заказов.
type PopularItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Price    Money  `json:"price"`
	Quantity int    `json:"orders"`
}

// DashboardStats содержит сводку для панели администратора.
type DashboardStats struct {
	TotalOrders  int            `json:"total_orders"`
	Revenue      Money          `json:"revenue"`
	MenuItems    int            `json:"menu_items"`
	ActiveUsers  int            `json:"active_users"`
	ByStatus     map[string]int `json:"orders_by_status"`
	RecentOrders []Order        `json:"recent_orders"`
	PopularItems []PopularItem  `json:"popular_items"`
}
