package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Verifier checks HS256 tokens minted by the account service and extracts
// the verified identity (the email claim). A connection whose token fails
// here binds to no identity and cannot appear in the presence registry.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat,omitempty"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
}

// VerifyIdentity returns the identity bound into the token, or an error if
// the signature, structure, or expiry check fails.
func (v *Verifier) VerifyIdentity(token string) (string, error) {
	headerB64, payloadB64, sigB64, ok := splitToken(token)
	if !ok {
		return "", ErrInvalidToken
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(headerB64)
	if err != nil {
		return "", ErrInvalidToken
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return "", ErrInvalidToken
	}
	if h.Alg != "HS256" {
		return "", ErrInvalidToken
	}

	gotSig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return "", ErrInvalidToken
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(headerB64))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(payloadB64))
	if !hmac.Equal(gotSig, mac.Sum(nil)) {
		return "", ErrInvalidToken
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return "", ErrInvalidToken
	}
	var c claims
	if err := json.Unmarshal(payloadJSON, &c); err != nil {
		return "", ErrInvalidToken
	}
	if c.Email == "" {
		return "", ErrInvalidToken
	}
	if c.Exp != 0 && v.now().Unix() >= c.Exp {
		return "", ErrTokenExpired
	}

	return c.Email, nil
}

// Sign mints a token for identity, valid for ttl. Used by tests and the dev
// admin endpoint; in production the account service issues tokens with the
// same secret.
func (v *Verifier) Sign(identity string, ttl time.Duration) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}

	now := v.now()
	payloadJSON, err := json.Marshal(claims{
		Email: identity,
		Iat:   now.Unix(),
		Exp:   now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	headerB64 := base64.RawURLEncoding.EncodeToString(headerJSON)
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadJSON)

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write([]byte(headerB64))
	_, _ = mac.Write([]byte{'.'})
	_, _ = mac.Write([]byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return headerB64 + "." + payloadB64 + "." + sigB64, nil
}

func splitToken(token string) (headerB64, payloadB64, sigB64 string, ok bool) {
	if token == "" {
		return "", "", "", false
	}
	headerB64, rest, found := strings.Cut(token, ".")
	if !found {
		return "", "", "", false
	}
	payloadB64, sigB64, found = strings.Cut(rest, ".")
	if !found || strings.Contains(sigB64, ".") {
		return "", "", "", false
	}
	return headerB64, payloadB64, sigB64, true
}
