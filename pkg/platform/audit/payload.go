package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payload is the JSON structure written to the outbox and published to the stream.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	Email     string `json:"email,omitempty"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
}

// NewOutboxEntry encodes event into an outbox entry. The category is always
// derived from the action so the mapping table stays the source of truth.
func NewOutboxEntry(event Event) (OutboxEntry, error) {
	eventID := uuid.NewString()
	category := AuditEvent(event.Action).Category()

	payload := Payload{
		ID:        eventID,
		Category:  string(category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		Email:     event.Email,
		IP:        event.IP,
		Device:    event.Device,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	key := eventID
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
		key = payload.UserID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("marshal audit payload: %w", err)
	}
	return OutboxEntry{
		ID:        eventID,
		EventType: event.Action,
		Category:  category,
		Key:       key,
		Payload:   raw,
		CreatedAt: event.Timestamp,
	}, nil
}
