package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password mismatch")

// Hasher hashes with bcrypt. Each hash carries its own random salt.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is
// out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("condo-timing-equalizer"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

func (h *Hasher) Hash(pw string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pw), h.cost)
}

// Compare returns ErrMismatch when pw does not match hash.
func (h *Hasher) Compare(hash []byte, pw string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(pw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}

// CompareDummy burns the same time as Compare for logins whose username
// does not exist.
func (h *Hasher) CompareDummy(pw string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(pw))
}
