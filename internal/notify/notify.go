// Package notify реализует канал уведомлений об изменении агрегатов витрины.
//
// Сигнал не несёт данных: получатель должен перечитать актуальное состояние.
// Одинаковые непрочитанные сигналы схлопываются, поэтому публикация никогда не блокируется.
package notify

import (
	"context"
	"errors"
	"sync"
)

// Signal идентифицирует изменившийся агрегат.
type Signal string

const (
	CartUpdated         Signal = "cartUpdated"
	WalletUpdated       Signal = "walletUpdated"
	OrderHistoryUpdated Signal = "orderHistoryUpdated"
	FavoritesUpdated    Signal = "favoritesUpdated"
)

// ErrClosed возвращается из Next после закрытия подписки.
var ErrClosed = errors.New("subscription closed")

// Bus рассылает сигналы всем подписчикам.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe регистрирует нового подписчика.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{
		bus:  b,
		id:   b.nextID,
		wake: make(chan struct{}, 1),
	}
	b.subs[s.id] = s
	return s
}

// Publish доставляет сигнал всем текущим подписчикам.
func (b *Bus) Publish(signals ...Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		for _, sig := range signals {
			s.deliver(sig)
		}
	}
}

// Len возвращает количество активных подписок.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription очередь непрочитанных сигналов одного подписчика.
type Subscription struct {
	bus  *Bus
	id   uint64
	wake chan struct{}

	mu      sync.Mutex
	pending []Signal
	closed  bool
}

func (s *Subscription) deliver(sig Signal) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, p := range s.pending {
		if p == sig {
			s.mu.Unlock()
			return
		}
	}
	s.pending = append(s.pending, sig)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Next ждёт следующий сигнал в порядке публикации.
func (s *Subscription) Next(ctx context.Context) (Signal, error) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			sig := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return sig, nil
		}
		if s.closed {
			s.mu.Unlock()
			return "", ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.wake:
		}
	}
}

// Close отписывает подписчика. Повторный вызов безопасен.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	s.bus.remove(s.id)

	select {
	case s.wake <- struct{}{}:
	default:
	}
}
