package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/notify"
	"github.com/Sivlinh/CloverLeaf/internal/payment"
)

// TopUpState состояние пополнения кошелька.
type TopUpState string

const (
	TopUpIdle             TopUpState = "Idle"
	TopUpAwaitingAmount   TopUpState = "AwaitingAmount"
	TopUpQRDisplayed      TopUpState = "QRDisplayed"
	TopUpPaymentConfirmed TopUpState = "PaymentConfirmed"
	TopUpTimedOut         TopUpState = "TimedOut"
	TopUpCancelled        TopUpState = "Cancelled"
)

// TopUpStatus описывает текущее пополнение и исход предыдущего.
type TopUpStatus struct {
	State       TopUpState       `json:"state"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Reference   string           `json:"reference,omitempty"`
	QRPayload   string           `json:"qrPayload,omitempty"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
	LastOutcome TopUpState       `json:"lastOutcome,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type topUp struct {
	state     TopUpState
	userID    int64
	amount    decimal.Decimal
	reference string
	qrPayload string
	deadline  time.Time
	timer     *time.Timer

	lastOutcome TopUpState
	lastError   string
}

func (t *topUp) status() TopUpStatus {
	st := TopUpStatus{
		State:       t.state,
		LastOutcome: t.lastOutcome,
		Error:       t.lastError,
	}
	if t.state == TopUpQRDisplayed {
		amount := t.amount
		deadline := t.deadline
		st.Amount = &amount
		st.Reference = t.reference
		st.QRPayload = t.qrPayload
		st.Deadline = &deadline
	}
	return st
}

// finish переводит пополнение в конечное состояние и сразу возвращает его в Idle.
func (t *topUp) finish(outcome TopUpState, errMsg string) {
	if t.timer != nil {
		t.timer.Stop()
	}
	*t = topUp{
		state:       TopUpIdle,
		lastOutcome: outcome,
		lastError:   errMsg,
	}
}

// TopUp возвращает состояние пополнения.
func (f *Storefront) TopUp() TopUpStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topUp.status()
}

// BeginTopUp открывает форму ввода суммы пополнения.
func (f *Storefront) BeginTopUp(ctx context.Context) (TopUpStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.svc.payments == nil {
		return TopUpStatus{}, ErrPaymentsUnavailable
	}

	u, err := f.sessionUser(ctx)
	if err != nil {
		return TopUpStatus{}, err
	}

	switch f.topUp.state {
	case TopUpIdle, TopUpAwaitingAmount:
	default:
		return f.topUp.status(), fmt.Errorf("begin top-up in state %s: %w", f.topUp.state, ErrTopUpState)
	}

	f.topUp.state = TopUpAwaitingAmount
	f.topUp.userID = u.ID
	return f.topUp.status(), nil
}

// SubmitTopUpAmount создаёт платёж на amount и показывает QR-код до истечения срока.
func (f *Storefront) SubmitTopUpAmount(ctx context.Context, amount decimal.Decimal) (TopUpStatus, error) {
	if !amount.IsPositive() {
		return TopUpStatus{}, &ValidationError{Field: "amount", Reason: ReasonNotPositive}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.topUp.state != TopUpAwaitingAmount {
		return f.topUp.status(), fmt.Errorf("submit amount in state %s: %w", f.topUp.state, ErrTopUpState)
	}

	reference := uuid.NewString()
	f.svc.registerTopUp(reference, f.clientID)

	req, err := f.svc.payments.InitiatePayment(ctx, reference, amount)
	if err != nil {
		f.svc.forgetTopUp(reference)
		return f.topUp.status(), fmt.Errorf("initiate payment: %w", err)
	}

	now := f.svc.now()
	deadline := now.Add(f.svc.topUpTimeout)
	if !req.Deadline.IsZero() && req.Deadline.Before(deadline) {
		deadline = req.Deadline
	}

	f.topUp.state = TopUpQRDisplayed
	f.topUp.amount = amount
	f.topUp.reference = reference
	f.topUp.qrPayload = req.QRPayload
	f.topUp.deadline = deadline
	f.topUp.timer = time.AfterFunc(deadline.Sub(now), func() { f.expireTopUp(reference) })

	f.logger.Info("top-up started",
		zap.String("reference", reference),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("deadline", deadline),
	)
	return f.topUp.status(), nil
}

// CancelTopUp отменяет пополнение. Баланс не меняется.
func (f *Storefront) CancelTopUp() TopUpStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.topUp.state {
	case TopUpAwaitingAmount:
		f.topUp.finish(TopUpCancelled, "")
	case TopUpQRDisplayed:
		f.svc.forgetTopUp(f.topUp.reference)
		f.logger.Info("top-up cancelled", zap.String("reference", f.topUp.reference))
		f.topUp.finish(TopUpCancelled, "")
	}
	return f.topUp.status()
}

func (f *Storefront) expireTopUp(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.topUp.state != TopUpQRDisplayed || f.topUp.reference != reference {
		return
	}

	f.svc.forgetTopUp(reference)
	f.logger.Info("top-up timed out", zap.String("reference", reference))
	f.topUp.finish(TopUpTimedOut, "")
}

// resolveTopUp применяет результат платежа. Результат для неактуального
// платежа игнорируется, поэтому зачисление не может произойти дважды.
func (f *Storefront) resolveTopUp(res payment.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.topUp.state != TopUpQRDisplayed || f.topUp.reference != res.Reference {
		f.logger.Debug("stale payment result ignored", zap.String("reference", res.Reference))
		return
	}

	if f.topUp.timer != nil {
		f.topUp.timer.Stop()
	}

	if !res.Paid {
		f.logger.Info("payment declined", zap.String("reference", res.Reference))
		f.topUp.finish(TopUpCancelled, "payment declined")
		return
	}

	userID, amount := f.topUp.userID, f.topUp.amount
	if _, err := f.adjustWallet(context.Background(), userID, amount); err != nil {
		f.logger.Error("top-up credit failed",
			zap.String("reference", res.Reference),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		f.topUp.finish(TopUpPaymentConfirmed, "credit failed: "+err.Error())
		return
	}

	f.logger.Info("top-up credited",
		zap.String("reference", res.Reference),
		zap.Int64("user_id", userID),
		zap.String("amount", amount.StringFixed(2)),
	)
	f.topUp.finish(TopUpPaymentConfirmed, "")
	f.bus.Publish(notify.WalletUpdated)
}
