package audit

import (
	"context"
	"time"

	id "condo/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Relays route categories to separate topics and retention policies.
type EventCategory string

const (
	// CategoryCompliance covers changes to who lives where and who may log in.
	// These are written fail-closed inside the mutating transaction.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication outcomes and rejected writes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID // identity affected, zero when none
	Subject   string    // human-readable subject, e.g. username or unit code
	Action    string
	Reason    string
	Email     string
	IP        string
	Device    string
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an administrator deleting a resident.
	ActorID string
}

type AuditEvent string

const (
	// Identity events
	EventIdentityRegistered   AuditEvent = "identity_registered"
	EventIdentityRolesChanged AuditEvent = "identity_roles_changed"
	EventIdentityDeleted      AuditEvent = "identity_deleted"

	// Authentication events
	EventLoginSucceeded AuditEvent = "login_succeeded"
	EventLoginFailed    AuditEvent = "login_failed"
	EventTokenRefreshed AuditEvent = "token_refreshed"
	EventLoggedOut      AuditEvent = "logged_out"

	// Residency events
	EventResidencyCreated           AuditEvent = "residency_created"
	EventResidencyPrincipalConflict AuditEvent = "residency_principal_conflict"
	EventPersonDeleted              AuditEvent = "person_deleted"
	EventUnitDeleted                AuditEvent = "unit_deleted"

	// Guard events
	EventAccessDenied      AuditEvent = "access_denied"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityRegistered:   CategoryCompliance,
	EventIdentityRolesChanged: CategoryCompliance,
	EventIdentityDeleted:      CategoryCompliance,
	EventResidencyCreated:     CategoryCompliance,
	EventPersonDeleted:        CategoryCompliance,
	EventUnitDeleted:          CategoryCompliance,

	EventLoginFailed:                CategorySecurity,
	EventResidencyPrincipalConflict: CategorySecurity,
	EventAccessDenied:               CategorySecurity,
	EventRateLimitExceeded:          CategorySecurity,

	EventLoginSucceeded: CategoryOperations,
	EventTokenRefreshed: CategoryOperations,
	EventLoggedOut:      CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Outbox-backed stores join the caller's
// transaction so an event is recorded if and only if the mutation commits.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is a persisted event awaiting delivery to the stream.
type OutboxEntry struct {
	ID        string
	EventType string
	Category  EventCategory
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox is read by the relay. Implementations return entries oldest first.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}
