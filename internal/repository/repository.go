// Package repository содержит реализации клиентского key-value хранилища витрины.
//
// Хранилище оперирует целыми документами: каждый ключ содержит JSON одного агрегата
// (корзина, справочник пользователей, история заказов). Все реализации сообщают
// об изменениях ключей через Watch, что заменяет браузерное событие storage.
package repository

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("key not found")

// Store описывает контракт key-value хранилища.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Watch блокируется до отмены контекста и вызывает fn для каждого изменённого ключа.
	Watch(ctx context.Context, fn func(Change)) error
	Close() error
}

// Change описывает изменение ключа. Origin идентифицирует процесс, выполнивший запись.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}
