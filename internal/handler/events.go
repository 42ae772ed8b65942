package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sivlinh/CloverLeaf/internal/notify"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
)

type eventMessage struct {
	Event notify.Signal `json:"event"`
}

// Events передаёт по WebSocket сигналы об изменении корзины, кошелька,
// истории заказов и избранного. Получив сигнал, клиент перечитывает данные.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	front, ok := h.storefront(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := front.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	signals := make(chan notify.Signal)
	go func() {
		defer close(signals)
		for {
			sig, err := sub.Next(ctx)
			if err != nil {
				return
			}
			select {
			case signals <- sig:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(eventsWriteWait))
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteJSON(eventMessage{Event: sig}); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.logger.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		}
	}
}
