package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

var (
	// ErrTokenMalformed is returned for tokens that are not a parseable signed JWT.
	ErrTokenMalformed = errors.New("jwt: token malformed")
	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenSignature is returned when a configured secret does not verify the token.
	ErrTokenSignature = errors.New("jwt: signature invalid")
)

// The BaaS signs with the project secret (HS256) or with asymmetric signing keys.
var allowedAlgorithms = []gojose.SignatureAlgorithm{
	gojose.HS256,
	gojose.ES256,
	gojose.RS256,
	gojose.EdDSA,
}

// AccessTokenClaims are the BaaS specific claims carried by access tokens.
type AccessTokenClaims struct {
	SessionID string `json:"session_id"`
}

// Claims is the inspected view of an access token.
type Claims struct {
	Subject   string
	SessionID string
	Expiry    time.Time
}

// Inspector reads access tokens issued by the BaaS. With a secret it verifies
// HS256 signatures; asymmetric tokens and tokens seen without a secret are
// only decoded.
type Inspector struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewInspector constructs an Inspector. An empty secret disables verification.
func NewInspector(secret string) *Inspector {
	var key []byte
	if trimmed := strings.TrimSpace(secret); trimmed != "" {
		key = []byte(trimmed)
	}
	return &Inspector{secret: key, leeway: 30 * time.Second, now: time.Now}
}

// WithClock returns a copy of the inspector using now as time source.
func (i *Inspector) WithClock(now func() time.Time) *Inspector {
	clone := *i
	clone.now = now
	return &clone
}

// Inspect parses the token and checks its expiry.
func (i *Inspector) Inspect(token string) (Claims, error) {
	parsed, err := gojwt.ParseSigned(strings.TrimSpace(token), allowedAlgorithms)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	var (
		std    gojwt.Claims
		custom AccessTokenClaims
	)
	if i.verifies(parsed) {
		if err := parsed.Claims(i.secret, &std, &custom); err != nil {
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenSignature, err)
		}
	} else if err := parsed.UnsafeClaimsWithoutVerification(&std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if err := std.ValidateWithLeeway(gojwt.Expected{Time: i.now()}, i.leeway); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims := Claims{
		Subject:   std.Subject,
		SessionID: custom.SessionID,
	}
	if std.Expiry != nil {
		claims.Expiry = std.Expiry.Time()
	}
	return claims, nil
}

func (i *Inspector) verifies(parsed *gojwt.JSONWebToken) bool {
	if len(i.secret) == 0 || len(parsed.Headers) == 0 {
		return false
	}
	return gojose.SignatureAlgorithm(parsed.Headers[0].Algorithm) == gojose.HS256
}

// TTL returns how long the token stays valid, or zero when it has no expiry.
func (i *Inspector) TTL(c Claims) time.Duration {
	if c.Expiry.IsZero() {
		return 0
	}
	remaining := c.Expiry.Sub(i.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
