package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "condo/pkg/domain-errors"
)

func TestViolations(t *testing.T) {
	attrs := Attributes{
		Username:  "maria.lopez@example.com",
		Email:     "maria.lopez@example.com",
		FirstName: "Maria",
		LastName:  "Lopez",
	}

	tests := []struct {
		name string
		pw   string
		want []string
	}{
		{"strong password", "Tr4vel-Lantern-92", nil},
		{"too short", "xK9#a", []string{"This password is too short. It must contain at least 8 characters."}},
		{"common", "password123", []string{"This password is too common."}},
		{"entirely numeric and short", "8264", []string{
			"This password is too short. It must contain at least 8 characters.",
			"This password is entirely numeric.",
		}},
		{"common and numeric", "123456789", []string{
			"This password is too common.",
			"This password is entirely numeric.",
		}},
		{"similar to first name", "mariaaaa", []string{"The password is too similar to the username."}},
		{"similar to last name only", "zepolol", []string{
			"The password is too similar to the username.",
			"This password is too short. It must contain at least 8 characters.",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Violations(tt.pw, attrs))
		})
	}
}

func TestSimilarityUsesLastNameLabel(t *testing.T) {
	got := Violations("Quintanilla9", Attributes{Username: "zz@example.com", LastName: "Quintanilla"})
	assert.Equal(t, []string{"The password is too similar to the last name."}, got)
}

func TestEmailSimilarityIgnoresDomain(t *testing.T) {
	attrs := Attributes{Email: "harbor@examplecondo.com"}
	assert.Equal(t, []string{"The password is too similar to the email address."}, Violations("harbor99", attrs))
	assert.Empty(t, Violations("examplecondo", attrs))
}

func TestValidateReportsAllRulesOnField(t *testing.T) {
	err := Validate("password", "1234", Attributes{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	fields := dErrors.Fields(err)
	assert.Len(t, fields["password"], 3)

	assert.NoError(t, Validate("password", "Tr4vel-Lantern-92", Attributes{}))
}

func TestQuickRatio(t *testing.T) {
	assert.InDelta(t, 1.0, QuickRatio("abc", "cba"), 1e-9)
	assert.InDelta(t, 0.0, QuickRatio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.5, QuickRatio("ab", "ac"), 1e-9)
	assert.InDelta(t, 1.0, QuickRatio("", ""), 1e-9)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("Tr4vel-Lantern-92")
	require.NoError(t, err)
	assert.NotContains(t, string(hash), "Tr4vel")

	again, err := h.Hash("Tr4vel-Lantern-92")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "each hash is salted")

	assert.NoError(t, h.Compare(hash, "Tr4vel-Lantern-92"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrMismatch)
}

func TestIsCommonCoversFullList(t *testing.T) {
	for _, pw := range []string{
		"zaq12wsx", "1q2w3e4r5t", "iloveyou1", "football1",
		"michael1", "letmein1", "sunshine1", "Princess1", " QWERTY123 ",
	} {
		t.Run(pw, func(t *testing.T) {
			assert.True(t, IsCommon(pw))
			assert.Contains(t, Violations(pw, Attributes{}), "This password is too common.")
		})
	}
	assert.False(t, IsCommon("Tr4vel-Lantern-92"))
}
