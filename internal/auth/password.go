package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Passwords hashes and checks credentials with bcrypt at a configured cost.
type Passwords struct {
	cost int
}

func NewPasswords(cost int) *Passwords {
	return &Passwords{cost: cost}
}

func (p *Passwords) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// Compare returns nil when the plaintext matches the stored hash.
func (p *Passwords) Compare(hash, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
}
