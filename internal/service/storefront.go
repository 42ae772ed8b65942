package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/repository"
)

// Storefront хранит состояние одного браузерного контекста.
//
// Все операции витрины выполняются последовательно под mu. Каждая изменяющая
// операция перечитывает агрегат из хранилища перед записью, поэтому изменения,
// сделанные другим процессом, не теряются. Последние прочитанные или записанные
// документы хранятся в кэше и используются, если хранилище недоступно.
type Storefront struct {
	svc      *Service
	clientID string
	bus      *notify.Bus
	logger   *zap.Logger
	lastUsed time.Time // под svc.mu

	mu    sync.Mutex
	topUp topUp

	cacheMu sync.Mutex
	cache   map[string][]byte
}

func newStorefront(svc *Service, clientID string) *Storefront {
	return &Storefront{
		svc:      svc,
		clientID: clientID,
		bus:      notify.NewBus(),
		logger:   svc.logger.With(zap.String("client_id", clientID)),
		topUp:    topUp{state: TopUpIdle},
		cache:    make(map[string][]byte),
	}
}

// ClientID возвращает идентификатор браузерного контекста.
func (f *Storefront) ClientID() string {
	return f.clientID
}

// Subscribe подписывает на сигналы об изменении агрегатов витрины.
func (f *Storefront) Subscribe() *notify.Subscription {
	return f.bus.Subscribe()
}

// idle сообщает, что у витрины нет подписчиков и начатого пополнения.
func (f *Storefront) idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topUp.state == TopUpIdle && f.bus.Len() == 0
}

func (f *Storefront) key(name string) string {
	return keyPrefix + f.clientID + "/" + name
}

// readDoc возвращает содержимое документа или nil, если его нет.
func (f *Storefront) readDoc(ctx context.Context, name string) []byte {
	data, err := f.svc.repo.Get(ctx, f.key(name))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		f.cacheMu.Lock()
		delete(f.cache, name)
		f.cacheMu.Unlock()
		return nil
	case err != nil:
		f.logger.Warn("storage read failed, using cached value", zap.String("key", name), zap.Error(err))
		f.cacheMu.Lock()
		defer f.cacheMu.Unlock()
		return bytes.Clone(f.cache[name])
	}

	f.cacheMu.Lock()
	f.cache[name] = bytes.Clone(data)
	f.cacheMu.Unlock()
	return data
}

func (f *Storefront) writeDoc(ctx context.Context, name string, data []byte) error {
	f.cacheMu.Lock()
	f.cache[name] = bytes.Clone(data)
	f.cacheMu.Unlock()

	if err := f.svc.repo.Set(ctx, f.key(name), data); err != nil {
		return &StorageError{Op: "write", Key: name, Err: err}
	}
	return nil
}

func (f *Storefront) saveDoc(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StorageError{Op: "encode", Key: name, Err: err}
	}
	return f.writeDoc(ctx, name, data)
}

func (f *Storefront) deleteDoc(ctx context.Context, name string) error {
	f.cacheMu.Lock()
	delete(f.cache, name)
	f.cacheMu.Unlock()

	if err := f.svc.repo.Delete(ctx, f.key(name)); err != nil {
		return &StorageError{Op: "delete", Key: name, Err: err}
	}
	return nil
}

// restoreDoc возвращает документу прежнее содержимое. Nil означает отсутствие документа.
func (f *Storefront) restoreDoc(ctx context.Context, name string, prev []byte) error {
	if prev == nil {
		return f.deleteDoc(ctx, name)
	}
	return f.writeDoc(ctx, name, prev)
}

func (f *Storefront) invalidate(name string) {
	f.cacheMu.Lock()
	delete(f.cache, name)
	f.cacheMu.Unlock()
}

// loadDoc читает и декодирует документ. Отсутствующий или повреждённый документ
// считается пустым.
func loadDoc[T any](ctx context.Context, f *Storefront, name string) (T, bool) {
	var v T

	data := f.readDoc(ctx, name)
	if data == nil {
		return v, false
	}

	if err := json.Unmarshal(data, &v); err != nil {
		f.logger.Warn("corrupt document treated as empty", zap.String("key", name), zap.Error(err))
		var zero T
		return zero, false
	}
	return v, true
}
