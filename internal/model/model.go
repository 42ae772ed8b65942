// Package model содержит доменные сущности витрины Cloverleaf.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар статического каталога.
type Product struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Category Categories      `json:"category"`
	Rating   float64         `json:"rating"`
	Images   []string        `json:"images"`
}

// CartItem описывает строку корзины вместе с данными товара.
// В таком денормализованном виде корзина хранится под ключом cart.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal возвращает стоимость строки.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// User представляет зарегистрированного пользователя и его кошелёк.
type User struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"passwordHash"`
	Avatar       string          `json:"avatar"`
	JoinDate     time.Time       `json:"joinDate"`
	Address      string          `json:"address"`
	PhoneNumber  string          `json:"phoneNumber"`
	Wallet       decimal.Decimal `json:"wallet"`
}

// ProfileUpdate содержит частичное изменение профиля. Nil-поля не меняются.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Address     *string `json:"address,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// OrderStatus описывает статус заказа.
type OrderStatus string

// OrderStatusDelivered единственный статус: реальной доставки нет.
const OrderStatusDelivered OrderStatus = "Delivered"

// LineItem описывает позицию заказа с ценой, зафиксированной на момент покупки.
type LineItem struct {
	ProductID int64           `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal возвращает стоимость позиции.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order описывает оформленный заказ пользователя.
type Order struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Items     []LineItem      `json:"lineItems"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"timestamp"`
	Status    OrderStatus     `json:"status"`
	Code      string          `json:"orderCode"`
}

// Review описывает отзыв о товаре.
type Review struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// WalletSummary содержит текущий баланс кошелька и сумму всех покупок.
type WalletSummary struct {
	Current decimal.Decimal `json:"current"`
	Spent   decimal.Decimal `json:"spent"`
}
