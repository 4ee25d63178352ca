package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	// Token secrets go through the same code path as passwords.
	secrets := []string{
		"StrongPassword123",
		"rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
	}

	for _, secret := range secrets {
		hash, err := HashPassword(secret)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$") {
			t.Errorf("hash %q is not in the expected PHC form", hash)
		}

		match, err := VerifyPassword(secret, hash)
		if err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if !match {
			t.Error("correct secret did not verify against its own hash")
		}

		match, err = VerifyPassword(secret+"-wrong", hash)
		if err != nil {
			t.Fatalf("VerifyPassword on a wrong secret returned error: %v", err)
		}
		if match {
			t.Error("wrong secret verified")
		}
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	t.Parallel()

	const secret = "the_same_password_12345"

	hash1, err := HashPassword(secret)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	hash2, err := HashPassword(secret)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same secret share a salt")
	}
}

func TestDecodeHash(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("anything")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	params, salt, key, err := decodeHash(hash)
	if err != nil {
		t.Fatalf("decodeHash failed: %v", err)
	}
	if params.memory != argon2Memory || params.time != argon2Time || params.threads != argon2Threads {
		t.Errorf("decoded params = %+v, want m=%d t=%d p=%d", params, argon2Memory, argon2Time, argon2Threads)
	}
	if len(salt) != argon2SaltLen {
		t.Errorf("salt length = %d, want %d", len(salt), argon2SaltLen)
	}
	if len(key) != argon2KeyLen {
		t.Errorf("key length = %d, want %d", len(key), argon2KeyLen)
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"not a PHC string", "not-a-hash", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=4$!!!$c29tZWhhc2g", ErrInvalidHash},
		{"old version", "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := VerifyPassword("password", tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if match {
				t.Error("malformed hash must never verify")
			}
		})
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	const token = "rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"

	if QuickHash(token) != QuickHash(token) {
		t.Error("same input must hash identically")
	}
	if QuickHash(token) == QuickHash(token+"x") {
		t.Error("different inputs produced the same cache key")
	}

	for _, input := range []string{token, "abc", "", strings.Repeat("x", 1000)} {
		if got := len(QuickHash(input)); got != 32 {
			t.Errorf("QuickHash(%.10q...) length = %d, want 32", input, got)
		}
	}
}
