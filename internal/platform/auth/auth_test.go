package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"docketflow/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", Audience: "authenticated", TokenTTL: time.Minute})

	token, err := svc.GenerateAccessToken("usr_1", "chef@harbour.co.nz")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	p, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != "usr_1" || p.Email != "chef@harbour.co.nz" {
		t.Errorf("Unexpected principal %+v", p)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "test-secret", Audience: "authenticated"})
	other := NewTokenService(config.JWTConfig{Secret: "other-secret", Audience: "authenticated"})

	forged, _ := other.GenerateAccessToken("usr_1", "")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr_1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, _ := expired.SignedString([]byte("test-secret"))

	wrongAud := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr_1",
			Audience:  jwt.ClaimStrings{"anon"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	wrongAudToken, _ := wrongAud.SignedString([]byte("test-secret"))

	tests := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   forged,
		"expired":        expiredToken,
		"wrong audience": wrongAudToken,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateToken(token); err == nil {
				t.Error("Expected token to be rejected")
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		if _, err := NewTokenService(config.JWTConfig{}).ValidateToken(forged); err == nil {
			t.Error("Expected error without secret")
		}
	})
}

type stubVerifier struct {
	principal *Principal
	err       error
}

func (s stubVerifier) Verify(context.Context, string) (*Principal, error) {
	return s.principal, s.err
}

func TestGateway(t *testing.T) {
	g := NewGateway(
		stubVerifier{err: errors.New("bad signature")},
		nil,
		stubVerifier{principal: &Principal{UserID: "usr_2"}},
	)

	p, err := g.Verify(context.Background(), "token")
	if err != nil || p.UserID != "usr_2" {
		t.Errorf("Expected second verifier to win, got %+v, %v", p, err)
	}

	if _, err := g.Verify(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for empty token, got %v", err)
	}

	if _, err := NewGateway().Verify(context.Background(), "token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken without verifiers, got %v", err)
	}
}

func TestServiceKeyVerifier(t *testing.T) {
	hash, err := HashServiceKey("svc-key-123")
	if err != nil {
		t.Fatalf("HashServiceKey: %v", err)
	}
	v := NewServiceKeyVerifier(hash)

	if err := v.Check("svc-key-123"); err != nil {
		t.Errorf("Expected key accepted, got %v", err)
	}
	if err := v.Check("wrong"); err == nil {
		t.Error("Expected wrong key rejected")
	}

	var disabled *ServiceKeyVerifier = NewServiceKeyVerifier("")
	if err := disabled.Check("svc-key-123"); err == nil {
		t.Error("Expected disabled verifier to reject")
	}
}
