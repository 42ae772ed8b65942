package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivlinh/CloverLeaf/internal/catalog"
	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/repository"
)

var errDiskFull = errors.New("quota exceeded")

// flakyRepo хранилище в памяти, умеющее отказывать в записи и чтении отдельных документов.
type flakyRepo struct {
	*repository.MemoryStore

	mu      sync.Mutex
	failSet map[string]error
	failGet map[string]error
	sets    map[string]int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{
		MemoryStore: repository.NewMemoryStore("test"),
		failSet:     make(map[string]error),
		failGet:     make(map[string]error),
		sets:        make(map[string]int),
	}
}

func (r *flakyRepo) failWrites(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failSet, name)
		return
	}
	r.failSet[name] = err
}

func (r *flakyRepo) failReads(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failGet, name)
		return
	}
	r.failGet[name] = err
}

func (r *flakyRepo) writes(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets[name]
}

func (r *flakyRepo) Get(ctx context.Context, key string) ([]byte, error) {
	_, name, _ := splitKey(key)
	r.mu.Lock()
	err := r.failGet[name]
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.MemoryStore.Get(ctx, key)
}

func (r *flakyRepo) Set(ctx context.Context, key string, value []byte) error {
	_, name, _ := splitKey(key)
	r.mu.Lock()
	err := r.failSet[name]
	r.sets[name]++
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryStore.Set(ctx, key, value)
}

// stubCatalog каталог с изменяемыми ценами.
type stubCatalog struct {
	mu       sync.Mutex
	products map[int64]model.Product
}

func newStubCatalog() *stubCatalog {
	c := &stubCatalog{products: make(map[int64]model.Product)}
	c.put(1, "Gentle Cleanser", "5.00")
	c.put(2, "Hydrating Serum", "12.00")
	c.put(3, "Rose Toner", "8.00")
	c.put(4, "Lip Balm", "3.50")
	return c
}

func (c *stubCatalog) put(id int64, title, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id] = model.Product{
		ID:       id,
		Title:    title,
		Price:    decimal.RequireFromString(price),
		Category: model.Categories{"Skincare"},
		Rating:   4.5,
	}
}

func (c *stubCatalog) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *stubCatalog) Get(id int64) (model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return model.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	orders []model.Order
	err    error
}

func (p *recordingPublisher) PublishOrderRecorded(_ context.Context, _ string, order model.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order)
	return p.err
}

func (p *recordingPublisher) published() []model.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Order(nil), p.orders...)
}

type fixture struct {
	repo    *flakyRepo
	catalog *stubCatalog
	svc     *Service
	front   *Storefront
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo := newFlakyRepo()
	cat := newStubCatalog()
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost), WithOrigin("test")}, opts...)
	svc := NewService(repo, cat, opts...)

	return &fixture{
		repo:    repo,
		catalog: cat,
		svc:     svc,
		front:   svc.Storefront("client-1"),
	}
}

func (fx *fixture) signUp(t *testing.T, name, email string) model.User {
	t.Helper()
	u, err := fx.front.SignUp(context.Background(), SignUpRequest{
		Name:            name,
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return u
}

func (fx *fixture) fund(t *testing.T, amount string) {
	t.Helper()
	_, err := fx.front.Credit(context.Background(), decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func (fx *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	u, err := fx.front.CurrentUser(context.Background())
	require.NoError(t, err)
	return u.Wallet
}

// drain возвращает накопившиеся сигналы подписки, не дожидаясь новых.
func drain(sub *notify.Subscription) []notify.Signal {
	var out []notify.Signal
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		sig, err := sub.Next(ctx)
		cancel()
		if err != nil {
			return out
		}
		out = append(out, sig)
	}
}

func cartIDs(items []model.CartItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}
