package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for stored passwords. Hashes
// produced by the password-hash helper script use the same cost, so the
// legacy admin hash and user hashes take equally long to check.
const DefaultCost = 10

// MaxPasswordBytes is bcrypt's input limit. Longer input would be silently
// truncated, so Hash rejects it.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification. The cost is a
// field so tests can run at bcrypt.MinCost.
type PasswordService struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordService creates a PasswordService with DefaultCost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Do NOT use in production; pass bcrypt.MinCost (4) to keep tests fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the plaintext password. The output embeds salt and cost:
//
//	$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hash. A wrong password yields
// ErrPasswordMismatch; a malformed hash yields a different error.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// BurnCompare runs a comparison against a throwaway hash of the service's
// cost. Login calls it for unknown usernames so their response time matches
// a wrong password for a real account.
func (p *PasswordService) BurnCompare(plaintext string) {
	p.dummyOnce.Do(func() {
		p.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
}
