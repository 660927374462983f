package security

import (
	"strings"
	"testing"
	"time"
)

func newManagerForTest() *SessionTokenManager {
	return NewSessionTokenManager("crewsight", "dashboard", "abcdefghijklmnopqrstuvwxyz123456")
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newManagerForTest()
	raw, err := m.Sign("01HZXK3V9QW0000000000000AB", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "01HZXK3V9QW0000000000000AB" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	m := newManagerForTest()
	raw, err := m.Sign("u1", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(raw); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	raw, err := newManagerForTest().Sign("u1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := NewSessionTokenManager("crewsight", "dashboard", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	if _, err := other.Parse(raw); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}

func TestSessionTokenRejectsTampering(t *testing.T) {
	m := newManagerForTest()
	raw, err := m.Sign("u1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := m.Parse(tampered); err == nil {
		t.Fatal("expected tampered token to fail")
	}
}

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(hash, "hunter2hunter2") {
		t.Fatal("expected password to verify")
	}
	if VerifyPassword(hash, "wrong-password") {
		t.Fatal("expected mismatch to fail")
	}
}
