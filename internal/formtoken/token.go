// Package formtoken issues the anti-forgery token embedded in each e-book
// lead form. A token is bound to one e-book and expires after a while, so a
// form posted for another e-book or replayed much later is refused.
package formtoken

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	immoerrors "github.com/immoshift/immoshift-web/internal/errors"
)

const (
	issuer     = "immoshift-web"
	DefaultTTL = 2 * time.Hour
)

type claims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies form tokens with an HMAC key.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) Option {
	return func(i *Issuer) { i.ttl = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// New returns an Issuer signing with secret.
func New(secret string, opts ...Option) *Issuer {
	i := &Issuer{key: []byte(secret), ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a token for ebookID.
func (i *Issuer) Issue(ebookID int64) (string, error) {
	now := i.now()
	c := claims{jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(ebookID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign form token: %w", err)
	}
	return s, nil
}

// Verify checks that token was issued by i for ebookID and has not expired.
// Failures carry IMMO_FORM_TOKEN.
func (i *Issuer) Verify(token string, ebookID int64) error {
	if token == "" {
		return immoerrors.New(immoerrors.IMMO_FORM_TOKEN, "missing form token", "")
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(strconv.FormatInt(ebookID, 10)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return immoerrors.Wrap(immoerrors.IMMO_FORM_TOKEN, "invalid form token", err)
	}
	if !parsed.Valid {
		return immoerrors.New(immoerrors.IMMO_FORM_TOKEN, "invalid form token", "")
	}
	return nil
}
