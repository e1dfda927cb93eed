package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
	"github.com/printmitra/printmitra-backend/pkg/outbox/registry"
)

const dispatchConsumerName = "dispatch"

type dispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) (*models.VendorOffer, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches order lifecycle events and starts the offer cascade for
// every order that reaches paid.
type Consumer struct {
	matching     dispatcher
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the dispatch consumer.
func NewConsumer(matching dispatcher, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if matching == nil {
		return nil, fmt.Errorf("matching service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})
	return &Consumer{
		matching:     matching,
		subscription: subscription,
		idempotency:  manager,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderStatusChanged) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, dispatchConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventOrderStatusChanged, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, dispatchConsumerName, eventID)
		return processResult{ack: true}
	}
	event, ok := decoded.(*payloads.OrderStatusChangedEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("%T", decoded))
		return processResult{ack: true}
	}

	if event.ToStatus != enums.OrderStatusPaid {
		return processResult{ack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, event.OrderID.String())
	if _, err := c.matching.Dispatch(ctx, event.OrderID); err != nil {
		switch {
		case pkgerrors.HasCode(err, pkgerrors.CodeNoVendorAvailable):
			// Already flagged for manual assignment; nothing to retry.
			c.logg.Warn(logCtx, "no vendor available for paid order")
		case pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), pkgerrors.HasCode(err, pkgerrors.CodeConflict):
			// The order moved on or an offer already exists.
			c.logg.Info(logCtx, "dispatch skipped, order no longer eligible")
		default:
			c.logg.Error(logCtx, "dispatch failed", err)
			_ = c.idempotency.Delete(ctx, dispatchConsumerName, eventID)
			return processResult{nack: true}
		}
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "offer cascade started")
	return processResult{ack: true}
}
