package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sokol111/ecommerce-sync/pkg/outbox"
)

// EnvelopeHandler publishes outbox events as JSON envelopes. The topic
// is derived from the aggregate type and the message key from the
// aggregate id, so all events of one aggregate stay ordered within a
// partition.
type EnvelopeHandler struct {
	producer Producer
	prefix   string
}

func NewEnvelopeHandler(producer Producer, conf Config) *EnvelopeHandler {
	conf.applyDefaults()
	return &EnvelopeHandler{producer: producer, prefix: conf.TopicPrefix}
}

func (h *EnvelopeHandler) Handle(ctx context.Context, event *outbox.Event) error {
	envelope := outbox.BuildEnvelope(event)

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope for event %s: %w", event.ID, err)
	}

	topic := fmt.Sprintf("%s.%s", h.prefix, event.AggregateType)
	if err := h.producer.ProduceSync(topic, []byte(event.AggregateID), value); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return nil
}
