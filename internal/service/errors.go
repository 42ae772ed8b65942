package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Причины ошибок валидации.
const (
	ReasonRequired      = "required"
	ReasonInvalidFormat = "invalid format"
	ReasonTooShort      = "too short"
	ReasonMismatch      = "does not match"
	ReasonTaken         = "already registered"
	ReasonNotPositive   = "must be positive"
	ReasonNegative      = "must not be negative"
	ReasonNoItems       = "no items selected"
	ReasonOutOfRange    = "out of range"
)

// ErrTopUpState возвращается, если операция пополнения недопустима в текущем состоянии.
var ErrTopUpState = errors.New("operation not allowed in current top-up state")

// ErrPaymentsUnavailable возвращается, если платёжный шлюз не настроен.
var ErrPaymentsUnavailable = errors.New("payment provider not configured")

// ValidationError описывает некорректные входные данные.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthError возвращается при неверных учётных данных или отсутствии активной сессии.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

func errInvalidCredentials() error {
	return &AuthError{Reason: "invalid credentials"}
}

func errLoginRequired() error {
	return &AuthError{Reason: "login required"}
}

// InsufficientFundsError возвращается, если сумма списания превышает баланс кошелька.
type InsufficientFundsError struct {
	Balance   decimal.Decimal
	Amount    decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: short by %s", e.Shortfall.StringFixed(2))
}

// StorageError оборачивает ошибку чтения или записи хранилища.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NotFoundError возвращается, если операция ссылается на несуществующую сущность.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}
