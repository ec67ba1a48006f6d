package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ana@x.com", Normalize("  Ana@X.com "))
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "ana.maria", LocalPart("ana.maria@x.com"))
	assert.Equal(t, "no-at-sign", LocalPart("no-at-sign"))
	assert.Equal(t, "@x.com", LocalPart("@x.com"))
}
