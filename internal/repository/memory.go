package repository

import (
	"context"
	"sync"
)

type memoryData struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[int]func(Change)
	nextID   int
}

// MemoryStore хранит документы в памяти процесса.
type MemoryStore struct {
	origin string
	data   *memoryData
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore(origin string) *MemoryStore {
	return &MemoryStore{
		origin: origin,
		data: &memoryData{
			values:   make(map[string][]byte),
			watchers: make(map[int]func(Change)),
		},
	}
}

// Peer возвращает хранилище с общими данными, но другим источником записей.
// Так в одном процессе моделируется вторая вкладка или второй экземпляр сервиса.
func (m *MemoryStore) Peer(origin string) *MemoryStore {
	return &MemoryStore{origin: origin, data: m.data}
}

// Get возвращает копию значения ключа.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	v, ok := m.data.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set сохраняет копию значения ключа.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.data.mu.Lock()
	m.data.values[key] = append([]byte(nil), value...)
	watchers := m.snapshotWatchers()
	m.data.mu.Unlock()

	m.notify(watchers, key)
	return nil
}

// Delete удаляет ключ. Отсутствие ключа не считается ошибкой.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.data.mu.Lock()
	_, existed := m.data.values[key]
	delete(m.data.values, key)
	watchers := m.snapshotWatchers()
	m.data.mu.Unlock()

	if existed {
		m.notify(watchers, key)
	}
	return nil
}

// Watch вызывает fn синхронно после каждой записи до отмены контекста.
func (m *MemoryStore) Watch(ctx context.Context, fn func(Change)) error {
	m.data.mu.Lock()
	id := m.data.nextID
	m.data.nextID++
	m.data.watchers[id] = fn
	m.data.mu.Unlock()

	<-ctx.Done()

	m.data.mu.Lock()
	delete(m.data.watchers, id)
	m.data.mu.Unlock()

	return nil
}

// Close ничего не делает.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) snapshotWatchers() []func(Change) {
	res := make([]func(Change), 0, len(m.data.watchers))
	for _, fn := range m.data.watchers {
		res = append(res, fn)
	}
	return res
}

func (m *MemoryStore) notify(watchers []func(Change), key string) {
	for _, fn := range watchers {
		fn(Change{Key: key, Origin: m.origin})
	}
}
