// Package service реализует бизнес-логику витрины Cloverleaf.
//
// Каждый браузерный контекст (клиент) получает собственную витрину Storefront со своей
// корзиной, сессией, справочником пользователей и историей заказов. Service хранит
// витрины, маршрутизирует результаты платежей и переводит изменения хранилища,
// сделанные другими процессами, в сигналы шины уведомлений.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sivlinh/CloverLeaf/internal/model"
	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/payment"
	"github.com/Sivlinh/CloverLeaf/internal/repository"
)

// DefaultTopUpTimeout время жизни QR-кода пополнения.
const DefaultTopUpTimeout = 5 * time.Minute

// DefaultIdleTimeout время без обращений, после которого витрина выгружается из памяти.
const DefaultIdleTimeout = 30 * time.Minute

const keyPrefix = "clients/"

// Repository описывает контракт хранилища, используемый сервисом.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context, fn func(repository.Change)) error
	Close() error
}

// Catalog описывает источник актуальных данных о товарах.
type Catalog interface {
	Get(id int64) (model.Product, error)
}

// OrderPublisher публикует события об оформленных заказах.
type OrderPublisher interface {
	PublishOrderRecorded(ctx context.Context, clientID string, order model.Order) error
}

// Service содержит витрины клиентов и общие зависимости.
type Service struct {
	repo         Repository
	catalog      Catalog
	payments     payment.Provider
	publisher    OrderPublisher
	logger       *zap.Logger
	origin       string
	now          func() time.Time
	topUpTimeout time.Duration
	idleTimeout  time.Duration
	bcryptCost   int
	watchDelays  []time.Duration

	mu          sync.Mutex
	storefronts map[string]*Storefront
	topUps      map[string]string
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPaymentProvider подключает платёжный шлюз для пополнения кошелька.
func WithPaymentProvider(p payment.Provider) Option {
	return func(s *Service) { s.payments = p }
}

// WithOrderPublisher подключает публикацию событий о заказах.
func WithOrderPublisher(p OrderPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithOrigin задаёт идентификатор процесса, которым помечаются записи в хранилище.
func WithOrigin(origin string) Option {
	return func(s *Service) { s.origin = origin }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTopUpTimeout задаёт время жизни QR-кода пополнения.
func WithTopUpTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.topUpTimeout = d
		}
	}
}

// WithIdleTimeout задаёт время без обращений, после которого витрина выгружается.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithWatchRetryDelays задаёт паузы перед повторными подписками на изменения хранилища.
func WithWatchRetryDelays(delays ...time.Duration) Option {
	return func(s *Service) {
		if len(delays) > 0 {
			s.watchDelays = delays
		}
	}
}

// WithBcryptCost задаёт стоимость хеширования паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService создаёт сервис поверх хранилища и каталога.
func NewService(repo Repository, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		catalog:      catalog,
		logger:       zap.NewNop(),
		origin:       uuid.NewString(),
		now:          time.Now,
		topUpTimeout: DefaultTopUpTimeout,
		idleTimeout:  DefaultIdleTimeout,
		bcryptCost:   bcrypt.DefaultCost,
		watchDelays:  []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second},
		storefronts:  make(map[string]*Storefront),
		topUps:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.payments != nil {
		s.payments.OnPaymentResult(s.handlePaymentResult)
	}

	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Origin возвращает идентификатор процесса.
func (s *Service) Origin() string {
	return s.origin
}

// Storefront возвращает витрину клиента, создавая её при первом обращении.
func (s *Service) Storefront(clientID string) *Storefront {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.storefronts[clientID]
	if !ok {
		f = newStorefront(s, clientID)
		s.storefronts[clientID] = f
	}
	f.lastUsed = s.now()
	return f
}

// EvictIdle периодически выгружает витрины без обращений, подписчиков и незавершённых
// пополнений. Их состояние остаётся в хранилище. Блокируется до отмены контекста.
func (s *Service) EvictIdle(ctx context.Context) {
	ticker := time.NewTicker(max(s.idleTimeout/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.evictIdle(); n > 0 {
				s.logger.Debug("idle storefronts evicted", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) evictIdle() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var candidates []*Storefront
	for _, f := range s.storefronts {
		if f.lastUsed.Before(cutoff) {
			candidates = append(candidates, f)
		}
	}
	s.mu.Unlock()

	evicted := 0
	for _, f := range candidates {
		if !f.idle() {
			continue
		}

		s.mu.Lock()
		if s.storefronts[f.clientID] == f && f.lastUsed.Before(cutoff) && !s.hasTopUpLocked(f.clientID) {
			delete(s.storefronts, f.clientID)
			evicted++
		}
		s.mu.Unlock()
	}
	return evicted
}

func (s *Service) hasTopUpLocked(clientID string) bool {
	for _, id := range s.topUps {
		if id == clientID {
			return true
		}
	}
	return false
}

func (s *Service) lookup(clientID string) *Storefront {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storefronts[clientID]
}

// Watch следит за изменениями хранилища, сделанными другими процессами,
// и рассылает соответствующие сигналы. Потерянная подписка восстанавливается
// после паузы. Блокируется до отмены контекста.
func (s *Service) Watch(ctx context.Context) error {
	attempt := 0
	for {
		started := s.now()
		err := s.repo.Watch(ctx, s.handleChange)
		if ctx.Err() != nil {
			return nil
		}

		last := s.watchDelays[len(s.watchDelays)-1]
		if s.now().Sub(started) > last {
			attempt = 0
		}
		delay := s.watchDelays[min(attempt, len(s.watchDelays)-1)]
		attempt++

		s.logger.Warn("storage watch interrupted, resubscribing",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Service) handleChange(c repository.Change) {
	if c.Origin == s.origin {
		return
	}

	clientID, name, ok := splitKey(c.Key)
	if !ok {
		return
	}

	f := s.lookup(clientID)
	if f == nil {
		return
	}

	f.invalidate(name)

	signals := signalsForKey(name)
	if len(signals) == 0 {
		return
	}

	s.logger.Debug("external change",
		zap.String("client_id", clientID),
		zap.String("key", name),
		zap.String("origin", c.Origin),
	)
	f.bus.Publish(signals...)
}

func (s *Service) registerTopUp(reference, clientID string) {
	s.mu.Lock()
	s.topUps[reference] = clientID
	s.mu.Unlock()
}

func (s *Service) forgetTopUp(reference string) {
	s.mu.Lock()
	delete(s.topUps, reference)
	s.mu.Unlock()
}

func (s *Service) handlePaymentResult(res payment.Result) {
	s.mu.Lock()
	clientID, ok := s.topUps[res.Reference]
	delete(s.topUps, res.Reference)
	f := s.storefronts[clientID]
	s.mu.Unlock()

	if !ok || f == nil {
		s.logger.Warn("payment result for unknown reference", zap.String("reference", res.Reference))
		return
	}

	f.resolveTopUp(res)
}

func (s *Service) publishOrder(clientID string, order model.Order) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.publisher.PublishOrderRecorded(ctx, clientID, order); err != nil {
		s.logger.Error("publish order event failed",
			zap.String("client_id", clientID),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func splitKey(key string) (clientID, name string, ok bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return "", "", false
	}
	return strings.Cut(rest, "/")
}

// signalsForKey сопоставляет ключ хранилища сигналам. Смена сессии меняет
// и отображаемый кошелёк, и историю заказов.
func signalsForKey(name string) []notify.Signal {
	switch {
	case name == cartKey:
		return []notify.Signal{notify.CartUpdated}
	case name == userKey:
		return []notify.Signal{notify.WalletUpdated, notify.OrderHistoryUpdated}
	case name == usersKey:
		return []notify.Signal{notify.WalletUpdated}
	case strings.HasPrefix(name, ordersKeyPrefix):
		return []notify.Signal{notify.OrderHistoryUpdated}
	case name == favoritesKey:
		return []notify.Signal{notify.FavoritesUpdated}
	}
	return nil
}
