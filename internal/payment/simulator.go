package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Simulator имитирует шлюз: платёж подтверждается сам через delay.
// При нулевой задержке платёж подтверждается только вызовом Confirm.
type Simulator struct {
	delay  time.Duration
	window time.Duration
	now    func() time.Time

	callbacks callbacks

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSimulator создаёт имитацию шлюза.
func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{
		delay:  delay,
		window: 5 * time.Minute,
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}
}

// OnPaymentResult регистрирует обработчик результатов платежей.
func (s *Simulator) OnPaymentResult(fn func(Result)) {
	s.callbacks.add(fn)
}

// InitiatePayment возвращает QR-код для оплаты суммы amount.
func (s *Simulator) InitiatePayment(_ context.Context, reference string, amount decimal.Decimal) (*Request, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.timers[reference]; dup {
		return nil, fmt.Errorf("duplicate payment reference %s", reference)
	}

	var timer *time.Timer
	if s.delay > 0 {
		timer = time.AfterFunc(s.delay, func() { s.Confirm(reference) })
	}
	s.timers[reference] = timer

	return &Request{
		Reference: reference,
		QRPayload: fmt.Sprintf("KHQR|CLOVERLEAF|%s|%s|USD", reference, amount.StringFixed(2)),
		Deadline:  s.now().Add(s.window),
	}, nil
}

// Confirm завершает платёж успешно. Возвращает false, если платёж неизвестен или уже завершён.
func (s *Simulator) Confirm(reference string) bool {
	return s.finish(reference, true)
}

// Decline завершает платёж отказом.
func (s *Simulator) Decline(reference string) bool {
	return s.finish(reference, false)
}

func (s *Simulator) finish(reference string, paid bool) bool {
	s.mu.Lock()
	timer, ok := s.timers[reference]
	if ok {
		delete(s.timers, reference)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	if timer != nil {
		timer.Stop()
	}

	s.callbacks.dispatch(Result{Reference: reference, Paid: paid})
	return true
}
