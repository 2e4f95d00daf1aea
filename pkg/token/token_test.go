package token

import (
	stderrors "errors"
	"testing"

	"TripPlanner/config"
	"TripPlanner/pkg/errors"
)

func setup(t *testing.T) {
	t.Helper()
	config.Cfg.JWTSecret = "test-secret-0123456789"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	if err := Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
}

func TestGenerateAndValidateRefresh(t *testing.T) {
	setup(t)

	pair, err := GenerateTokenPair("42", "ana@example.com")
	if err != nil {
		t.Fatalf("GenerateTokenPair() = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.ExpiresIn != 30*60 {
		t.Fatalf("ExpiresIn = %d, want %d", pair.ExpiresIn, 30*60)
	}

	uid, err := ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken() = %v", err)
	}
	if uid != "42" {
		t.Fatalf("uid = %q, want 42", uid)
	}
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	setup(t)

	pair, err := GenerateTokenPair("42", "ana@example.com")
	if err != nil {
		t.Fatalf("GenerateTokenPair() = %v", err)
	}

	_, err = ValidateRefreshToken(pair.AccessToken)
	if !stderrors.Is(err, errors.ErrInvalidTokenType) {
		t.Fatalf("err = %v, want ErrInvalidTokenType", err)
	}
}

func TestValidateRefreshRejectsGarbage(t *testing.T) {
	setup(t)

	if _, err := ValidateRefreshToken("not-a-jwt"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIsRefreshClaims(t *testing.T) {
	if !IsRefreshClaims(map[string]interface{}{TypeKey: "refresh"}) {
		t.Fatal("refresh claims not detected")
	}
	if IsRefreshClaims(map[string]interface{}{IdentityKey: "1"}) {
		t.Fatal("access claims reported as refresh")
	}
}
