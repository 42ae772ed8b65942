package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/repository"
)

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key      string
		clientID string
		name     string
		ok       bool
	}{
		{key: "clients/abc/cart", clientID: "abc", name: "cart", ok: true},
		{key: "clients/abc/orders_17", clientID: "abc", name: "orders_17", ok: true},
		{key: "clients/abc", ok: false},
		{key: "other/abc/cart", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clientID, name, ok := splitKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.clientID, clientID)
				assert.Equal(t, tt.name, name)
			}
		})
	}
}

func TestSignalsForKey(t *testing.T) {
	tests := []struct {
		name string
		want []notify.Signal
	}{
		{name: "cart", want: []notify.Signal{notify.CartUpdated}},
		{name: "user", want: []notify.Signal{notify.WalletUpdated, notify.OrderHistoryUpdated}},
		{name: "users", want: []notify.Signal{notify.WalletUpdated}},
		{name: "orders_1700000000000", want: []notify.Signal{notify.OrderHistoryUpdated}},
		{name: "favorites", want: []notify.Signal{notify.FavoritesUpdated}},
		{name: "reviews_11", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signalsForKey(tt.name))
		})
	}
}

func TestWatch_RepublishesChangesFromOtherProcess(t *testing.T) {
	store := repository.NewMemoryStore("a")
	cat := newStubCatalog()

	local := NewService(store, cat, WithOrigin("a"), WithBcryptCost(bcrypt.MinCost))
	remote := NewService(store.Peer("b"), cat, WithOrigin("b"), WithBcryptCost(bcrypt.MinCost))

	front := local.Storefront("client-1")
	sub := front.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- local.Watch(ctx) }()

	other := remote.Storefront("client-1")
	require.Eventually(t, func() bool {
		if _, err := other.ToggleItem(context.Background(), 3); err != nil {
			return false
		}

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer waitCancel()
		sig, err := sub.Next(waitCtx)
		return err == nil && sig == notify.CartUpdated
	}, 2*time.Second, 10*time.Millisecond)

	_, err := other.ToggleFavorite(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, drain(sub), notify.FavoritesUpdated)

	require.NoError(t, other.AddItem(context.Background(), 4))
	assert.Contains(t, cartIDs(front.Cart(context.Background())), int64(4))

	cancel()
	<-done
}

func TestWatch_IgnoresOwnWritesAndUnknownClients(t *testing.T) {
	store := repository.NewMemoryStore("a")
	svc := NewService(store, newStubCatalog(), WithOrigin("a"))

	front := svc.Storefront("client-1")
	sub := front.Subscribe()
	defer sub.Close()

	svc.handleChange(repository.Change{Key: "clients/client-1/cart", Origin: "a"})
	assert.Empty(t, drain(sub))

	svc.handleChange(repository.Change{Key: "clients/client-2/cart", Origin: "b"})
	assert.Nil(t, svc.lookup("client-2"))

	svc.handleChange(repository.Change{Key: "clients/client-1/user", Origin: "b"})
	assert.Equal(t, []notify.Signal{notify.WalletUpdated, notify.OrderHistoryUpdated}, drain(sub))
}

func TestStorefront_IsolatedPerClient(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.front.AddItem(ctx, 1))
	other := fx.svc.Storefront("client-2")

	assert.Empty(t, other.Cart(ctx))
	assert.Same(t, fx.front, fx.svc.Storefront("client-1"))
	assert.Equal(t, "client-2", other.ClientID())
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestEvictIdle(t *testing.T) {
	clock := &manualClock{t: time.Now()}
	fx, _ := newTopUpFixture(t, WithClock(clock.now), WithIdleTimeout(time.Minute))
	ctx := context.Background()
	require.NoError(t, fx.front.AddItem(ctx, 1))

	for i := 0; i < 1000; i++ {
		fx.svc.Storefront(fmt.Sprintf("once-%d", i))
	}

	watcher := fx.svc.Storefront("watcher")
	sub := watcher.Subscribe()

	showQR(t, fx, "10")

	clock.advance(2 * time.Minute)
	fx.svc.Storefront("recent")

	assert.Equal(t, 1000, fx.svc.evictIdle())
	assert.Nil(t, fx.svc.lookup("once-0"))
	assert.Same(t, fx.front, fx.svc.lookup("client-1"))
	assert.Same(t, watcher, fx.svc.lookup("watcher"))
	assert.NotNil(t, fx.svc.lookup("recent"))

	fx.front.CancelTopUp()
	sub.Close()
	clock.advance(2 * time.Minute)

	assert.Equal(t, 3, fx.svc.evictIdle())
	assert.Empty(t, fx.svc.storefronts)

	reloaded := fx.svc.Storefront("client-1")
	assert.NotSame(t, fx.front, reloaded)
	assert.Equal(t, []int64{1}, cartIDs(reloaded.Cart(ctx)))
}

func TestEvictIdle_StopsOnCancel(t *testing.T) {
	svc := NewService(repository.NewMemoryStore("a"), newStubCatalog())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.EvictIdle(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("EvictIdle did not return after context cancellation")
	}
}

// droppingWatchRepo обрывает первые подписки на изменения.
type droppingWatchRepo struct {
	*repository.MemoryStore

	mu    sync.Mutex
	drops int
}

func (r *droppingWatchRepo) Watch(ctx context.Context, fn func(repository.Change)) error {
	r.mu.Lock()
	drop := r.drops > 0
	if drop {
		r.drops--
	}
	r.mu.Unlock()

	if drop {
		return errors.New("conn closed")
	}
	return r.MemoryStore.Watch(ctx, fn)
}

func TestWatch_ResubscribesAfterDroppedConnection(t *testing.T) {
	store := repository.NewMemoryStore("a")
	repo := &droppingWatchRepo{MemoryStore: store, drops: 2}
	cat := newStubCatalog()

	core, logs := observer.New(zap.WarnLevel)
	local := NewService(repo, cat,
		WithOrigin("a"),
		WithLogger(zap.New(core)),
		WithWatchRetryDelays(time.Millisecond),
	)
	remote := NewService(store.Peer("b"), cat, WithOrigin("b"))

	sub := local.Storefront("client-1").Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- local.Watch(ctx) }()

	require.Eventually(t, func() bool {
		if _, err := remote.Storefront("client-1").ToggleFavorite(context.Background(), 2); err != nil {
			return false
		}
		return len(drain(sub)) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 2, logs.FilterMessage("storage watch interrupted, resubscribing").Len())
}
