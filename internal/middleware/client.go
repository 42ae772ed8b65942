// Package middleware содержит HTTP middleware витрины Cloverleaf.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const clientIDKey contextKey = "clientID"

const (
	clientCookieName = "client_id"
	clientCookieTTL  = 365 * 24 * time.Hour
)

// ClientMiddleware привязывает запрос к браузерному контексту по подписанному cookie.
// Браузер без корректного cookie получает новый идентификатор.
type ClientMiddleware struct {
	secretKey []byte
}

// NewClientMiddleware создаёт middleware с указанным секретным ключом.
// При пустом ключе генерируется случайный, и cookie перестают быть валидными после перезапуска.
func NewClientMiddleware(secret string) *ClientMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &ClientMiddleware{
		secretKey: key,
	}
}

// Middleware извлекает идентификатор клиента из cookie или выдаёт новый
// и добавляет его в контекст запроса.
func (c *ClientMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ""
		if cookie, err := r.Cookie(clientCookieName); err == nil {
			if id, ok := c.parseCookie(cookie.Value); ok {
				clientID = id
			}
		}

		if clientID == "" {
			clientID = uuid.NewString()
			c.SetClientCookie(w, clientID)
		}

		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetClientCookie устанавливает cookie с подписанным идентификатором клиента.
func (c *ClientMiddleware) SetClientCookie(w http.ResponseWriter, clientID string) {
	cookie := &http.Cookie{
		Name:     clientCookieName,
		Value:    c.sign(clientID),
		Path:     "/",
		Expires:  time.Now().Add(clientCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (c *ClientMiddleware) sign(clientID string) string {
	mac := hmac.New(sha256.New, c.secretKey)
	mac.Write([]byte(clientID))
	return clientID + "." + hex.EncodeToString(mac.Sum(nil))
}

func (c *ClientMiddleware) parseCookie(value string) (string, bool) {
	clientID, signature, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}

	if _, err := uuid.Parse(clientID); err != nil {
		return "", false
	}

	_, expected, _ := strings.Cut(c.sign(clientID), ".")
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	return clientID, true
}

// GetClientIDFromContext извлекает идентификатор клиента из контекста запроса.
func GetClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey).(string)
	return id, ok && id != ""
}

// WithClientID возвращает контекст с идентификатором клиента.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}
