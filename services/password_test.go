package services

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if strings.Count(hash, "$") != 1 {
		t.Fatalf("unexpected hash format %q", hash)
	}

	other, _ := HashPassword("secret1!")
	if hash == other {
		t.Error("two hashes of the same password share a salt")
	}

	if !ComparePasswords(hash, "secret1!") {
		t.Error("expected password to match")
	}
	if ComparePasswords(hash, "secret2!") {
		t.Error("expected wrong password to fail")
	}
}

func TestVerifyPasswordBadFormat(t *testing.T) {
	if _, err := VerifyPassword("no-separator", "x"); err == nil {
		t.Error("expected error for malformed hash")
	}
	if ComparePasswords("a$b$c", "x") {
		t.Error("malformed hash must not match")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
