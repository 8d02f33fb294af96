package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrMissingToken     = errors.New("authorization header required")
	ErrInvalidToken     = errors.New("invalid token format")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidIssuer    = errors.New("invalid issuer")
)

// MinSecretLen is the shortest HS256 key go-jose accepts.
const MinSecretLen = 32

// Claims is the payload of an access token for the single user.
type Claims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp,omitempty"`
}

// VerifyConfig holds verification configuration
type VerifyConfig struct {
	SecretKey      []byte        // HS256 key
	ExpectedIssuer string        // Optional: validate issuer
	ClockSkew      time.Duration // Optional: allow clock skew (default 0)
}

// VerifyToken verifies the signature and time bounds of tokenString.
func VerifyToken(tokenString string, config VerifyConfig) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	if len(config.SecretKey) == 0 {
		return nil, errors.New("no verification key provided")
	}

	tok, err := jwt.ParseSigned(tokenString, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := &Claims{}
	if err := tok.Claims(config.SecretKey, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	now := time.Now().Unix()
	skew := int64(config.ClockSkew.Seconds())

	if claims.ExpiresAt > 0 && claims.ExpiresAt < (now-skew) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt > 0 && claims.IssuedAt > (now+skew) {
		return nil, ErrTokenNotYetValid
	}
	if config.ExpectedIssuer != "" && claims.Issuer != config.ExpectedIssuer {
		return nil, fmt.Errorf("%w: expected '%s', got '%s'",
			ErrInvalidIssuer, config.ExpectedIssuer, claims.Issuer)
	}

	return claims, nil
}

// CreateToken signs claims with secret using HS256.
func CreateToken(claims *Claims, secret []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims cannot be nil")
	}
	if len(secret) < MinSecretLen {
		return "", fmt.Errorf("secret must be at least %d bytes", MinSecretLen)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to create JWT: %w", err)
	}
	return token, nil
}

// IssueToken creates a token for subject valid for ttl (no expiry when ttl is 0).
func IssueToken(subject, issuer string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{Issuer: issuer, Subject: subject, IssuedAt: now.Unix()}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return CreateToken(claims, secret)
}

// FromRequest verifies the bearer token carried by r.
func FromRequest(r *http.Request, config VerifyConfig) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return nil, fmt.Errorf("%w: expected Bearer scheme", ErrInvalidToken)
	}
	return VerifyToken(token, config)
}
