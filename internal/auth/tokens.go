package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrUnauthenticated covers every way a credential can be bad: absent,
// malformed, expired or carrying a wrong signature. Callers never need to
// tell these apart.
var ErrUnauthenticated = errors.New("not authenticated")

// Identity is what a verified token binds.
type Identity struct {
	UserID int64
	Email  string
}

// Tokens issues and verifies signed identity tokens. The signing secret is
// process-wide configuration handed in once at startup; it is never logged.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue produces a signed, time-bounded HS256 credential for a user.
func (t *Tokens) Issue(userID int64, email string) (string, error) {
	now := t.now().UTC()

	token, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Claim("email", email).
		Build()
	if err != nil {
		return "", fmt.Errorf("could not build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return string(signed), nil
}

// Verify checks signature and expiry and returns the bound identity.
func (t *Tokens) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}

	// WithKey pins HS256; tokens signed any other way fail verification
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, t.secret),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(t.now)),
	)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(token.Subject(), 10, 64)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	var email string
	if raw, ok := token.Get("email"); ok {
		email, _ = raw.(string)
	}

	return Identity{UserID: userID, Email: email}, nil
}
