package outbox

import "time"

// Envelope is the wire-ready shape handed to downstream consumers.
// This is the only place the subscriber-facing event contract is
// defined; any contract change happens here.
type Envelope struct {
	Headers  Headers           `json:"headers"`
	Payload  map[string]any    `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Headers carries identity, classification and provenance of one event.
type Headers struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source,omitempty"`
	TenantID      string    `json:"tenant_id,omitempty"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CausationID   string    `json:"causation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Actor         *Actor    `json:"actor,omitempty"`
	NodeID        string    `json:"node_id,omitempty"`
	Channel       string    `json:"channel,omitempty"`
}

// Actor identifies who caused the event.
type Actor struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
}

// BuildEnvelope is a pure transform from a stored event to its wire shape.
func BuildEnvelope(e *Event) Envelope {
	headers := Headers{
		ID:            e.ID,
		Type:          e.EventType,
		Source:        e.Source,
		TenantID:      e.TenantID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		CorrelationID: e.CorrelationID,
		CausationID:   e.CausationID,
		Timestamp:     e.CreatedAt,
		NodeID:        e.NodeID,
		Channel:       e.Channel,
	}

	if e.ActorID != "" || e.ActorRole != "" {
		headers.Actor = &Actor{ID: e.ActorID, Role: e.ActorRole}
	}

	return Envelope{
		Headers:  headers,
		Payload:  e.Payload,
		Metadata: e.Metadata,
	}
}
