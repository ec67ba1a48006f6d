package domain

import (
	"github.com/google/uuid"

	dErrors "condo/pkg/domain-errors"
)

// Typed identifiers keep references to different aggregates from being
// mixed up at compile time. All of them are UUIDs on the wire and in storage.
type (
	UserID      uuid.UUID // authentication identity
	RoleID      uuid.UUID
	UnitID      uuid.UUID
	PersonID    uuid.UUID
	ResidencyID uuid.UUID
	VisitorID   uuid.UUID
	VehicleID   uuid.UUID
	CatalogID   uuid.UUID // reference table entry (unit category, fee type, ...)
	FeeID       uuid.UUID
	FeeItemID   uuid.UUID
	PaymentID   uuid.UUID
	NoticeID    uuid.UUID
)

type id16 interface {
	~[16]byte
}

// parseID validates and parses a UUID string at a trust boundary.
// Empty strings, malformed input and the nil UUID are rejected.
func parseID[T id16](s, label string) (T, error) {
	var zero T
	if s == "" {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if parsed == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return T(parsed), nil
}

func ParseUserID(s string) (UserID, error)           { return parseID[UserID](s, "user ID") }
func ParseRoleID(s string) (RoleID, error)           { return parseID[RoleID](s, "role ID") }
func ParseUnitID(s string) (UnitID, error)           { return parseID[UnitID](s, "unit ID") }
func ParsePersonID(s string) (PersonID, error)       { return parseID[PersonID](s, "person ID") }
func ParseResidencyID(s string) (ResidencyID, error) { return parseID[ResidencyID](s, "residency ID") }
func ParseVisitorID(s string) (VisitorID, error)     { return parseID[VisitorID](s, "visitor ID") }
func ParseVehicleID(s string) (VehicleID, error)     { return parseID[VehicleID](s, "vehicle ID") }
func ParseCatalogID(s string) (CatalogID, error)     { return parseID[CatalogID](s, "catalog ID") }
func ParseFeeID(s string) (FeeID, error)             { return parseID[FeeID](s, "fee ID") }
func ParseFeeItemID(s string) (FeeItemID, error)     { return parseID[FeeItemID](s, "fee item ID") }
func ParsePaymentID(s string) (PaymentID, error)     { return parseID[PaymentID](s, "payment ID") }
func ParseNoticeID(s string) (NoticeID, error)       { return parseID[NoticeID](s, "notice ID") }

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id RoleID) String() string      { return uuid.UUID(id).String() }
func (id UnitID) String() string      { return uuid.UUID(id).String() }
func (id PersonID) String() string    { return uuid.UUID(id).String() }
func (id ResidencyID) String() string { return uuid.UUID(id).String() }
func (id VisitorID) String() string   { return uuid.UUID(id).String() }
func (id VehicleID) String() string   { return uuid.UUID(id).String() }
func (id CatalogID) String() string   { return uuid.UUID(id).String() }
func (id FeeID) String() string       { return uuid.UUID(id).String() }
func (id FeeItemID) String() string   { return uuid.UUID(id).String() }
func (id PaymentID) String() string   { return uuid.UUID(id).String() }
func (id NoticeID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RoleID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UnitID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ResidencyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id VisitorID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id VehicleID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CatalogID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id FeeID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id FeeItemID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id NoticeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshaling lets typed IDs appear as plain UUID strings in JSON bodies
// and as map keys.

func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id RoleID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id UnitID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PersonID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ResidencyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id VisitorID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id VehicleID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id CatalogID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id FeeID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id FeeItemID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id PaymentID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id NoticeID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error      { return unmarshalID(id, b, "user ID") }
func (id *RoleID) UnmarshalText(b []byte) error      { return unmarshalID(id, b, "role ID") }
func (id *UnitID) UnmarshalText(b []byte) error      { return unmarshalID(id, b, "unit ID") }
func (id *PersonID) UnmarshalText(b []byte) error    { return unmarshalID(id, b, "person ID") }
func (id *ResidencyID) UnmarshalText(b []byte) error { return unmarshalID(id, b, "residency ID") }
func (id *VisitorID) UnmarshalText(b []byte) error   { return unmarshalID(id, b, "visitor ID") }
func (id *VehicleID) UnmarshalText(b []byte) error   { return unmarshalID(id, b, "vehicle ID") }
func (id *CatalogID) UnmarshalText(b []byte) error   { return unmarshalID(id, b, "catalog ID") }
func (id *FeeID) UnmarshalText(b []byte) error       { return unmarshalID(id, b, "fee ID") }
func (id *FeeItemID) UnmarshalText(b []byte) error   { return unmarshalID(id, b, "fee item ID") }
func (id *PaymentID) UnmarshalText(b []byte) error   { return unmarshalID(id, b, "payment ID") }
func (id *NoticeID) UnmarshalText(b []byte) error    { return unmarshalID(id, b, "notice ID") }

func unmarshalID[T id16](dst *T, b []byte, label string) error {
	parsed, err := parseID[T](string(b), label)
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}
