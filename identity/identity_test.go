package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/Feral-Mailbox/PokeWars/gameerr"
	"github.com/Feral-Mailbox/PokeWars/persistence"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$") {
		t.Errorf("Expected a PHC argon2id string, got %q", hash)
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("Expected the original password to verify")
	}

	ok, err = VerifyPassword(hash, "wrong password")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("Expected a wrong password to fail verification")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	b, err := HashPassword("same password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if a == b {
		t.Error("Expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA",
	} {
		if _, err := VerifyPassword(encoded, "pw"); err == nil {
			t.Errorf("Expected an error for malformed hash %q", encoded)
		}
	}
}

func TestRegister_And_Authenticate(t *testing.T) {
	p := NewProvider(persistence.NewMemoryStore())

	ident, err := p.Register("ash", "ash@example.com", "pikachu-forever")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if ident.ID == 0 || ident.Username != "ash" {
		t.Errorf("Unexpected identity: %+v", ident)
	}
	if ident.Elo != 1000 {
		t.Errorf("Expected the starting Elo, got %d", ident.Elo)
	}

	back, err := p.Authenticate("ash", "pikachu-forever")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if back.ID != ident.ID {
		t.Errorf("Expected the same identity back, got %d vs %d", back.ID, ident.ID)
	}

	resolved, err := p.Resolve(ident.ID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Username != "ash" {
		t.Errorf("Expected username ash, got %q", resolved.Username)
	}
}

func TestRegister_Validation(t *testing.T) {
	p := NewProvider(persistence.NewMemoryStore())

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "a@example.com", "long-enough"},
		{"empty email", "ash", "", "long-enough"},
		{"short password", "ash", "a@example.com", "short"},
	}
	for _, tc := range cases {
		if _, err := p.Register(tc.username, tc.email, tc.password); !errors.Is(err, gameerr.ErrValidation) {
			t.Errorf("%s: expected Validation, got %v", tc.name, err)
		}
	}
}

func TestRegister_DuplicateIsConflict(t *testing.T) {
	p := NewProvider(persistence.NewMemoryStore())

	if _, err := p.Register("ash", "ash@example.com", "pikachu-forever"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := p.Register("ash", "other@example.com", "pikachu-forever"); !errors.Is(err, gameerr.ErrConflict) {
		t.Errorf("Expected Conflict for a duplicate username, got %v", err)
	}
	if _, err := p.Register("misty", "ash@example.com", "starmie-forever"); !errors.Is(err, gameerr.ErrConflict) {
		t.Errorf("Expected Conflict for a duplicate email, got %v", err)
	}
}

func TestAuthenticate_UniformRejection(t *testing.T) {
	p := NewProvider(persistence.NewMemoryStore())

	if _, err := p.Register("ash", "ash@example.com", "pikachu-forever"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// A missing user and a wrong password must be indistinguishable.
	_, missingErr := p.Authenticate("nobody", "whatever")
	_, wrongErr := p.Authenticate("ash", "wrong password")

	if !errors.Is(missingErr, gameerr.ErrUnauthorized) {
		t.Errorf("Expected Unauthorized for a missing user, got %v", missingErr)
	}
	if !errors.Is(wrongErr, gameerr.ErrUnauthorized) {
		t.Errorf("Expected Unauthorized for a wrong password, got %v", wrongErr)
	}
	if missingErr.Error() != wrongErr.Error() {
		t.Errorf("Rejections must read identically: %q vs %q", missingErr, wrongErr)
	}
}

func TestResolve_UnknownUser(t *testing.T) {
	p := NewProvider(persistence.NewMemoryStore())
	if _, err := p.Resolve(42); !errors.Is(err, gameerr.ErrUnauthorized) {
		t.Errorf("Expected Unauthorized for an unknown id, got %v", err)
	}
}
