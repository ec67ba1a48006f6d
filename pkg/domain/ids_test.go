package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "condo/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUnitID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUnitID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUnitID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUnitID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UnitID(validUUID), id)
		assert.False(t, id.IsNil())
	})
}

// TestParseID_TrustBoundary validates that attack vectors are rejected at API entry points.
func TestParseID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE units;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResidencyID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	parsers := map[string]func(string) error{
		"user":      func(s string) error { _, err := ParseUserID(s); return err },
		"role":      func(s string) error { _, err := ParseRoleID(s); return err },
		"unit":      func(s string) error { _, err := ParseUnitID(s); return err },
		"person":    func(s string) error { _, err := ParsePersonID(s); return err },
		"residency": func(s string) error { _, err := ParseResidencyID(s); return err },
		"visitor":   func(s string) error { _, err := ParseVisitorID(s); return err },
		"vehicle":   func(s string) error { _, err := ParseVehicleID(s); return err },
		"catalog":   func(s string) error { _, err := ParseCatalogID(s); return err },
		"fee":       func(s string) error { _, err := ParseFeeID(s); return err },
		"fee item":  func(s string) error { _, err := ParseFeeItemID(s); return err },
		"payment":   func(s string) error { _, err := ParsePaymentID(s); return err },
		"notice":    func(s string) error { _, err := ParseNoticeID(s); return err },
	}

	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, parse(validUUID))
			for _, input := range []string{"", "invalid", uuid.Nil.String()} {
				assert.Error(t, parse(input), "input %q", input)
			}
		})
	}
}

func TestTypedIDs_JSONRoundTrip(t *testing.T) {
	type body struct {
		UnitID   UnitID    `json:"unit_id"`
		PersonID *PersonID `json:"person_id,omitempty"`
	}

	unitID := UnitID(uuid.New())
	raw, err := json.Marshal(body{UnitID: unitID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"unit_id":"`+unitID.String()+`"}`, string(raw))

	var decoded body
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, unitID, decoded.UnitID)
	assert.Nil(t, decoded.PersonID)

	err = json.Unmarshal([]byte(`{"unit_id":"nope"}`), &decoded)
	require.Error(t, err)
}

func TestRoleName_IsValid(t *testing.T) {
	assert.True(t, RoleResident.IsValid())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, RoleName("Superuser").IsValid())
}
