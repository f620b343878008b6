package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or lacks the connect scope.
var ErrInvalidToken = errors.New("invalid token")

// ScopeConnect authorizes POST /connect.
const ScopeConnect = "bridge:connect"

// ControlClaims are the claims of a control-endpoint token.
type ControlClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// Verifier validates control tokens signed with RS256 or ES256.
type Verifier struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewVerifier returns a Verifier for publicKey. Empty issuer or audience are not checked.
func NewVerifier(publicKey crypto.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{publicKey: publicKey, issuer: issuer, audience: audience}
}

// Verify parses tokenString and checks signature, expiry, iss, aud and scope.
func (v *Verifier) Verify(tokenString string) (*ControlClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{KeyAlg(v.publicKey)}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	claims := &ControlClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	}, opts...)
	if err != nil || !token.Valid || claims.Scope != ScopeConnect {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issuer mints control tokens for operators.
type Issuer struct {
	key      crypto.Signer
	issuer   string
	audience string
	ttl      time.Duration
}

// NewIssuer returns an Issuer signing with key (RS256 or ES256).
func NewIssuer(key crypto.Signer, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{key: key, issuer: issuer, audience: audience, ttl: ttl}
}

// Issue returns a connect-scoped token for subject and its expiry.
func (i *Issuer) Issue(subject string, now time.Time) (string, time.Time, error) {
	var method jwt.SigningMethod
	switch KeyAlg(i.key.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidKey
	}
	now = now.UTC()
	expiresAt := now.Add(i.ttl)
	claims := ControlClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scope: ScopeConnect,
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}
