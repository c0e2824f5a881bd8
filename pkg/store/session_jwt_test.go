package store

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	store, err := NewJWTSessionStore("test-secret", 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := store.NewSession("jane@example.com")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	subject, ok, err := store.GetSubjectByToken(token)
	if err != nil || !ok {
		t.Fatalf("expected valid token, ok=%v err=%v", ok, err)
	}
	if subject != "jane@example.com" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestJWTSessionStoreRejectsOtherSecret(t *testing.T) {
	signing, _ := NewJWTSessionStore("secret-a", time.Hour)
	verify, _ := NewJWTSessionStore("secret-b", time.Hour)
	token, err := signing.NewSession("user@example.com")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verify.GetSubjectByToken(token); err == nil || ok {
		t.Fatalf("expected signature mismatch to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsExpired(t *testing.T) {
	store, _ := NewJWTSessionStore("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	store.now = func() time.Time { return issued }
	token, err := store.NewSession("user@example.com")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.now = time.Now
	if _, ok, err := store.GetSubjectByToken(token); err == nil || ok {
		t.Fatalf("expected expired token to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsUnexpectedAlgorithm(t *testing.T) {
	store, _ := NewJWTSessionStore("secret", time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "user@example.com",
		Issuer:    defaultJWTIssuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, ok, err := store.GetSubjectByToken(token); err == nil || ok {
		t.Fatalf("expected HS512 token to be rejected")
	}
	if _, ok, _ := store.GetSubjectByToken("   "); ok {
		t.Fatalf("blank token must be rejected")
	}
}

func TestNewJWTSessionStoreRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore(" ", time.Hour); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
