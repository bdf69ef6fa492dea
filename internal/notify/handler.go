package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/mars-shop.git/internal/kafka"
	"github.com/ariefcatur/mars-shop.git/internal/orders"
)

// Deduper remembers which events were already handled.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
}

// Handler consumes OrderCreated events and sends one message per order.
type Handler struct {
	Sender   Sender
	Dedup    Deduper
	Location *time.Location
	Log      *zap.Logger
}

func (h *Handler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// HandleMessage is a kafka.Handler. Events of other types are ignored.
func (h *Handler) HandleMessage(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, kafkax.HeaderEventType); t != "" && t != orders.EventOrderCreated {
		return nil
	}
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	if h.Dedup != nil {
		first, err := h.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			h.log().Warn("dedup claim failed, sending anyway", zap.String("event_id", env.EventID), zap.Error(err))
		} else if !first {
			h.log().Debug("duplicate event skipped", zap.String("event_id", env.EventID))
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := h.Sender.Send(ctx, OrderMessage(p.Order, p.Customer, h.Location)); err != nil {
		return fmt.Errorf("notify order %d: %w", p.Order.ID, err)
	}
	h.log().Info("order notification sent", zap.Int64("order_id", p.Order.ID), zap.String("event_id", env.EventID))
	return nil
}

// Direct is an orders.Publisher that sends notifications from the API process
// itself. Sending happens in the background with a deadline.
type Direct struct {
	Sender   Sender
	Location *time.Location
	Timeout  time.Duration
	Log      *zap.Logger

	wg sync.WaitGroup
}

func (d *Direct) OrderCreated(ctx context.Context, o orders.Order, customer *orders.Contact) error {
	text := OrderMessage(o, customer, d.Location)
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := d.Sender.Send(ctx, text); err != nil && d.Log != nil {
			d.Log.Warn("order notification failed", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}()
	return nil
}

// StatusChanged is a no-op; only new orders are announced.
func (d *Direct) StatusChanged(context.Context, int64, orders.Status, orders.Status) error {
	return nil
}

// Wait blocks until in-flight notifications are done.
func (d *Direct) Wait() { d.wg.Wait() }
