package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Статусы платежа во внешнем шлюзе.
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
	StatusExpired = "EXPIRED"
)

// forgetAfter время после дедлайна, по истечении которого платёж перестаёт опрашиваться.
const forgetAfter = time.Minute

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
	logger     *zap.Logger
	now        func() time.Time

	callbacks callbacks

	mu      sync.Mutex
	pending map[string]time.Time
}

// PaymentStatus описывает ответ шлюза по одному платежу.
type PaymentStatus struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type initiateRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

// NewClient создаёт HTTP-клиент для обращения к шлюзу по указанному адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.CheckRetry = retryPolicy
	rc.Logger = retryLogger{logger.Sugar()}

	httpClient := rc.StandardClient()
	httpClient.Timeout = 5 * time.Second

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		interval:   1 * time.Second,
		logger:     logger,
		now:        time.Now,
		pending:    make(map[string]time.Time),
	}
}

// retryPolicy повторяет запросы при сетевых ошибках и ответах 5xx.
// 429 обрабатывается опросом с учётом Retry-After.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type retryLogger struct {
	l *zap.SugaredLogger
}

func (r retryLogger) Error(msg string, kv ...interface{}) { r.l.Errorw(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.l.Warnw(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.l.Debugw(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.l.Debugw(msg, kv...) }

// OnPaymentResult регистрирует обработчик результатов платежей.
func (c *Client) OnPaymentResult(fn func(Result)) {
	c.callbacks.add(fn)
}

// InitiatePayment создаёт платёж в шлюзе и начинает опрашивать его статус.
func (c *Client) InitiatePayment(ctx context.Context, reference string, amount decimal.Decimal) (*Request, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("payment client not configured")
	}

	body, err := json.Marshal(initiateRequest{Reference: reference, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Request
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Reference == "" {
		result.Reference = reference
	}

	c.mu.Lock()
	c.pending[result.Reference] = result.Deadline
	c.mu.Unlock()

	return &result, nil
}

// GetPaymentStatus запрашивает статус платежа.
func (c *Client) GetPaymentStatus(ctx context.Context, reference string) (*PaymentStatus, int, time.Duration, error) {
	if c == nil || c.baseURL == "" {
		return nil, 0, 0, fmt.Errorf("payment client not configured")
	}

	url := fmt.Sprintf("%s/api/payments/%s", c.baseURL, reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, resp.StatusCode, retryAfter, nil
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, resp.StatusCode, 0, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result PaymentStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, 0, fmt.Errorf("decode response: %w", err)
	}

	return &result, resp.StatusCode, 0, nil
}

// Run опрашивает шлюз по ожидающим платежам до отмены контекста.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Pending() > 0 {
				c.processPending(ctx)
			}
		}
	}
}

func (c *Client) processPending(ctx context.Context) {
	now := c.now()

	c.mu.Lock()
	refs := make([]string, 0, len(c.pending))
	for ref, deadline := range c.pending {
		if !deadline.IsZero() && now.After(deadline.Add(forgetAfter)) {
			delete(c.pending, ref)
			continue
		}
		refs = append(refs, ref)
	}
	c.mu.Unlock()

	for _, ref := range refs {
		resp, statusCode, retryAfter, err := c.GetPaymentStatus(ctx, ref)
		if err != nil {
			c.logger.Warn("payment status request failed", zap.String("reference", ref), zap.Error(err))
			continue
		}

		if statusCode == http.StatusTooManyRequests {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		if resp == nil {
			continue
		}

		var paid bool
		switch resp.Status {
		case StatusPending:
			continue
		case StatusPaid:
			paid = true
		case StatusFailed, StatusExpired:
			paid = false
		default:
			continue
		}

		c.mu.Lock()
		_, stillPending := c.pending[ref]
		delete(c.pending, ref)
		c.mu.Unlock()

		if stillPending {
			c.callbacks.dispatch(Result{Reference: ref, Paid: paid})
		}
	}
}

// Pending возвращает количество опрашиваемых платежей.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
