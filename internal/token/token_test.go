package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("test-secret", "HS256")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestMintDecodeRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	signed, jti, err := c.Mint("user-1", TypeAccess, time.Minute, map[string]string{
		"role":       "user",
		"session_id": "sess-1",
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if jti == "" {
		t.Fatal("expected non-empty jti")
	}

	claims, err := c.Decode(signed)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Type != TypeAccess {
		t.Errorf("type = %q, want access", claims.Type)
	}
	if claims.JTI != jti {
		t.Errorf("jti = %q, want %q", claims.JTI, jti)
	}
	if claims.Role != "user" || claims.SessionID != "sess-1" {
		t.Errorf("extra claims not preserved: role=%q session_id=%q", claims.Role, claims.SessionID)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Errorf("exp %d not after iat %d", claims.ExpiresAt, claims.IssuedAt)
	}
}

func TestMintUniqueJTI(t *testing.T) {
	c := newTestCodec(t)
	_, a, _ := c.Mint("u", TypeRefresh, time.Minute, nil)
	_, b, _ := c.Mint("u", TypeRefresh, time.Minute, nil)
	if a == b {
		t.Fatal("expected distinct jti per mint")
	}
}

func TestDecodeExpired(t *testing.T) {
	c := newTestCodec(t)
	signed, _, err := c.Mint("user-1", TypeAccess, -time.Minute, nil)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := c.Decode(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeWrongSecret(t *testing.T) {
	c := newTestCodec(t)
	other, _ := NewCodec("other-secret", "HS256")
	signed, _, _ := other.Mint("user-1", TypeAccess, time.Minute, nil)
	if _, err := c.Decode(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	c := newTestCodec(t)
	if _, err := c.Decode("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeMissingSubject(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now().UTC()
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat":  now.Unix(),
		"exp":  now.Add(time.Minute).Unix(),
		"type": "access",
		"jti":  "x",
	})
	signed, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = c.Decode(signed)
	if !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatal("ErrMissingSubject must match ErrInvalidToken")
	}
}

func TestDecodeRejectsForeignAlgorithm(t *testing.T) {
	c := newTestCodec(t)
	other, _ := NewCodec("test-secret", "HS512")
	signed, _, _ := other.Mint("user-1", TypeAccess, time.Minute, nil)
	if _, err := c.Decode(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for HS512 token, got %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	if _, err := NewCodec("", "HS256"); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewCodec("s", "RS256"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}
