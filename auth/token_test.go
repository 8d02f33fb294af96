package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-at-least-32-bytes-long")

func TestIssueAndVerify(t *testing.T) {
	token, err := IssueToken("owner", "shrink", time.Hour, testSecret)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "shrink"})
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Subject != "owner" {
		t.Errorf("expected subject owner, got %s", claims.Subject)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _ := IssueToken("owner", "shrink", time.Hour, testSecret)
	other := []byte("another-secret-key-that-is-long-enough-too")
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: other}); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	token, err := CreateToken(&Claims{
		Subject:   "owner",
		IssuedAt:  time.Now().Add(-2 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret}); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyFutureIssuedAt(t *testing.T) {
	token, _ := CreateToken(&Claims{Subject: "owner", IssuedAt: time.Now().Add(time.Hour).Unix()}, testSecret)
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret}); !errors.Is(err, ErrTokenNotYetValid) {
		t.Errorf("expected ErrTokenNotYetValid, got %v", err)
	}
	// within the allowed skew it passes
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret, ClockSkew: 2 * time.Hour}); err != nil {
		t.Errorf("expected token to pass with skew, got %v", err)
	}
}

func TestVerifyIssuer(t *testing.T) {
	token, _ := IssueToken("owner", "someone-else", 0, testSecret)
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "shrink"}); !errors.Is(err, ErrInvalidIssuer) {
		t.Errorf("expected ErrInvalidIssuer, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := VerifyToken("", VerifyConfig{SecretKey: testSecret}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
	if _, err := VerifyToken("a.b.c", VerifyConfig{SecretKey: testSecret}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestCreateTokenShortSecret(t *testing.T) {
	if _, err := CreateToken(&Claims{Subject: "owner"}, []byte("short")); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestFromRequest(t *testing.T) {
	token, _ := IssueToken("owner", "shrink", time.Hour, testSecret)
	cfg := VerifyConfig{SecretKey: testSecret}

	req := httptest.NewRequest("POST", "/reduce", nil)
	if _, err := FromRequest(req, cfg); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}

	req.Header.Set("Authorization", "Basic abc")
	if _, err := FromRequest(req, cfg); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for non-bearer scheme, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	claims, err := FromRequest(req, cfg)
	if err != nil {
		t.Fatalf("FromRequest failed: %v", err)
	}
	if claims.Subject != "owner" {
		t.Errorf("expected owner, got %s", claims.Subject)
	}
}
