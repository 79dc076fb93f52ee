package security

import (
	"strings"
	"testing"
	"time"
)

func TestMintAndParseSessionToken(t *testing.T) {
	secret := []byte("test-secret")
	id := GenerateSessionID()

	token, err := MintSessionToken(secret, id, time.Hour)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}

	got, err := ParseSessionToken(secret, token)
	if err != nil {
		t.Fatalf("ParseSessionToken failed: %v", err)
	}
	if got != id {
		t.Errorf("expected session id %q, got %q", id, got)
	}
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	token, err := MintSessionToken([]byte("secret-a"), "session-1", time.Hour)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}

	if _, err := ParseSessionToken([]byte("secret-b"), token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := MintSessionToken(secret, "session-1", -time.Minute)
	if err != nil {
		t.Fatalf("MintSessionToken failed: %v", err)
	}

	if _, err := ParseSessionToken(secret, token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseSessionTokenGarbage(t *testing.T) {
	if _, err := ParseSessionToken([]byte("test-secret"), "not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestGenerateSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateSessionID()
		if len(strings.TrimSpace(id)) == 0 {
			t.Fatal("generated empty session id")
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
