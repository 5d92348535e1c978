package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "u-42", "STAFF", 15)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Until(tok.Exp); d < 14*time.Minute || d > 15*time.Minute {
		t.Errorf("expiry in %s, want about 15m", d)
	}
	claims, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "u-42" || claims.Role != "STAFF" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, _ := NewAccessToken("s3cret", "u-1", "PARISHIONER", 5)
	expired, _ := NewAccessToken("s3cret", "u-1", "PARISHIONER", -5)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u-1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).SignedString([]byte("s3cret"))

	tests := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"s3cret", expired.Token},
		"alg none":     {"s3cret", none},
		"no exp":       {"s3cret", noExp},
		"garbage":      {"s3cret", "not.a.token"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.secret, tt.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewAccessTokenNeedsSubject(t *testing.T) {
	if _, err := NewAccessToken("s3cret", "", "STAFF", 5); err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("err = %v", err)
	}
}
