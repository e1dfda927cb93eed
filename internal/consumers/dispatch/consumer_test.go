package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printmitra/printmitra-backend/pkg/db/models"
	"github.com/printmitra/printmitra-backend/pkg/enums"
	pkgerrors "github.com/printmitra/printmitra-backend/pkg/errors"
	"github.com/printmitra/printmitra-backend/pkg/logger"
	"github.com/printmitra/printmitra-backend/pkg/outbox"
	"github.com/printmitra/printmitra-backend/pkg/outbox/payloads"
)

type stubDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (s *stubDispatcher) Dispatch(ctx context.Context, orderID uuid.UUID) (*models.VendorOffer, error) {
	s.dispatched = append(s.dispatched, orderID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.VendorOffer{ID: uuid.New(), OrderID: orderID}, nil
}

type stubIdempotency struct {
	seen    map[uuid.UUID]bool
	deleted []uuid.UUID
	err     error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{seen: make(map[uuid.UUID]bool)}
}

func (s *stubIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen[eventID] {
		return true, nil
	}
	s.seen[eventID] = true
	return false, nil
}

func (s *stubIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	delete(s.seen, eventID)
	s.deleted = append(s.deleted, eventID)
	return nil
}

func newTestConsumer(t *testing.T, matching *stubDispatcher, manager *stubIdempotency) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "dispatch-test", Output: io.Discard})
	consumer, err := NewConsumer(matching, &pubsub.Subscriber{}, manager, logg)
	require.NoError(t, err)
	return consumer
}

func buildMessage(t *testing.T, event payloads.OrderStatusChangedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	return &pubsub.Message{
		ID:   uuid.NewString(),
		Data: payload,
		Attributes: map[string]string{
			"event_type": string(enums.EventOrderStatusChanged),
		},
	}
}

func paidEvent(orderID uuid.UUID) payloads.OrderStatusChangedEvent {
	return payloads.OrderStatusChangedEvent{
		OrderID:     orderID,
		OrderNumber: "PM-ORD-2026000001",
		FromStatus:  enums.OrderStatusEstimated,
		ToStatus:    enums.OrderStatusPaid,
		ChangedAt:   time.Now().UTC(),
	}
}

func TestProcessDispatchesPaidOrder(t *testing.T) {
	matching := &stubDispatcher{}
	consumer := newTestConsumer(t, matching, newStubIdempotency())
	orderID := uuid.New()

	result := consumer.process(context.Background(), buildMessage(t, paidEvent(orderID)))

	assert.True(t, result.ack)
	require.Len(t, matching.dispatched, 1)
	assert.Equal(t, orderID, matching.dispatched[0])
}

func TestProcessIgnoresNonPaidTransitions(t *testing.T) {
	matching := &stubDispatcher{}
	consumer := newTestConsumer(t, matching, newStubIdempotency())

	event := paidEvent(uuid.New())
	event.FromStatus = enums.OrderStatusAssigned
	event.ToStatus = enums.OrderStatusInProduction

	result := consumer.process(context.Background(), buildMessage(t, event))

	assert.True(t, result.ack)
	assert.Empty(t, matching.dispatched)
}

func TestProcessIgnoresOtherEventTypes(t *testing.T) {
	matching := &stubDispatcher{}
	consumer := newTestConsumer(t, matching, newStubIdempotency())

	msg := buildMessage(t, paidEvent(uuid.New()))
	msg.Attributes["event_type"] = string(enums.EventOfferCreated)

	result := consumer.process(context.Background(), msg)

	assert.True(t, result.ack)
	assert.Empty(t, matching.dispatched)
}

func TestProcessSkipsAlreadyProcessedEvent(t *testing.T) {
	matching := &stubDispatcher{}
	manager := newStubIdempotency()
	consumer := newTestConsumer(t, matching, manager)

	msg := buildMessage(t, paidEvent(uuid.New()))
	first := consumer.process(context.Background(), msg)
	second := consumer.process(context.Background(), msg)

	assert.True(t, first.ack)
	assert.True(t, second.ack)
	assert.Len(t, matching.dispatched, 1)
}

func TestProcessAcksWhenNoVendorAvailable(t *testing.T) {
	matching := &stubDispatcher{err: pkgerrors.New(pkgerrors.CodeNoVendorAvailable, "no vendor in range")}
	consumer := newTestConsumer(t, matching, newStubIdempotency())

	result := consumer.process(context.Background(), buildMessage(t, paidEvent(uuid.New())))

	assert.True(t, result.ack)
	assert.False(t, result.nack)
}

func TestProcessNacksAndReleasesKeyOnTransientFailure(t *testing.T) {
	matching := &stubDispatcher{err: errors.New("db down")}
	manager := newStubIdempotency()
	consumer := newTestConsumer(t, matching, manager)

	result := consumer.process(context.Background(), buildMessage(t, paidEvent(uuid.New())))

	assert.True(t, result.nack)
	assert.Len(t, manager.deleted, 1)
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	matching := &stubDispatcher{}
	consumer := newTestConsumer(t, matching, newStubIdempotency())

	msg := &pubsub.Message{
		ID:   uuid.NewString(),
		Data: []byte("not-json"),
		Attributes: map[string]string{
			"event_type": string(enums.EventOrderStatusChanged),
		},
	}

	result := consumer.process(context.Background(), msg)

	assert.True(t, result.ack)
	assert.Empty(t, matching.dispatched)
}
