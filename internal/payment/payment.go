// Package payment содержит интеграцию с платёжным шлюзом пополнения кошелька.
//
// Шлюз выдаёт QR-код для оплаты и позже сообщает результат. Витрина не зависит
// от конкретного шлюза: ей достаточно интерфейса Provider.
package payment

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Request описывает созданный платёж, ожидающий оплаты по QR-коду.
type Request struct {
	Reference string    `json:"reference"`
	QRPayload string    `json:"qr_payload"`
	Deadline  time.Time `json:"expires_at"`
}

// Result сообщает итог платежа.
type Result struct {
	Reference string
	Paid      bool
}

// Provider описывает платёжный шлюз.
type Provider interface {
	InitiatePayment(ctx context.Context, reference string, amount decimal.Decimal) (*Request, error)
	OnPaymentResult(fn func(Result))
}

type callbacks struct {
	mu  sync.RWMutex
	fns []func(Result)
}

func (c *callbacks) add(fn func(Result)) {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

func (c *callbacks) dispatch(res Result) {
	c.mu.RLock()
	fns := slices.Clone(c.fns)
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(res)
	}
}
