package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// EnvelopeVersion is bumped whenever the envelope layout changes in a way
// consumers must notice.
const EnvelopeVersion = 1

// ActorRef names the user behind the change, when there is one.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope wraps every event. It is stored in outbox_events.payload
// and published byte for byte, so consumers see exactly what was committed.
// Type and AggregateID repeat the row columns for consumers that only see
// the message body.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"eventId"`
	Type        enums.OutboxEventType `json:"type,omitempty"`
	AggregateID uuid.UUID             `json:"aggregateId,omitzero"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}
