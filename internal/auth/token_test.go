package auth

import (
	"strings"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Check plaintext format
	if !strings.HasPrefix(tok.Plaintext, "rcp_") {
		t.Errorf("Token should start with rcp_, got: %s", tok.Plaintext)
	}

	// Check prefix length
	if len(tok.Prefix) != TokenPrefixLen {
		t.Errorf("Prefix should be %d chars, got: %d", TokenPrefixLen, len(tok.Prefix))
	}

	// Check hash is not empty and in PHC format
	if tok.Hash == "" {
		t.Error("Hash should not be empty")
	}
	if !strings.HasPrefix(tok.Hash, "$argon2id$v=") {
		t.Errorf("Hash should be in PHC format, got: %s", tok.Hash)
	}

	// Verify plaintext contains prefix
	if !strings.Contains(tok.Plaintext, tok.Prefix) {
		t.Error("Plaintext should contain prefix")
	}

	// Generated token should pass its own format validation
	if !ValidateTokenFormat(tok.Plaintext) {
		t.Errorf("Generated token fails format validation: %s", tok.Plaintext)
	}
}

func TestGenerateToken_UniquePrefixes(t *testing.T) {
	t.Parallel()

	const numTokens = 100
	prefixes := make(map[string]bool, numTokens)

	for i := 0; i < numTokens; i++ {
		tok, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}

		if prefixes[tok.Prefix] {
			t.Errorf("Duplicate prefix found: %s (iteration %d)", tok.Prefix, i)
		}
		prefixes[tok.Prefix] = true
	}

	// Verify all prefixes are unique (high probability)
	if len(prefixes) != numTokens {
		t.Errorf("Expected %d unique prefixes, got %d", numTokens, len(prefixes))
	}
}

func TestGenerateToken_UniqueSecrets(t *testing.T) {
	t.Parallel()

	const numTokens = 100
	secrets := make(map[string]bool, numTokens)

	for i := 0; i < numTokens; i++ {
		tok, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}

		// Extract secret from plaintext (last 32 chars after final underscore)
		parts := strings.Split(tok.Plaintext, "_")
		if len(parts) != 3 {
			t.Fatalf("Expected 3 parts in token, got %d", len(parts))
		}
		secret := parts[2]

		if secrets[secret] {
			t.Errorf("Duplicate secret found at iteration %d", i)
		}
		secrets[secret] = true
	}

	if len(secrets) != numTokens {
		t.Errorf("Expected %d unique secrets, got %d", numTokens, len(secrets))
	}
}

func TestParseToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		token      string
		wantPrefix string
		wantSecret string
		wantErr    error
	}{
		{
			name:       "valid token",
			token:      "rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
			wantPrefix: "abc123",
			wantSecret: "4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
			wantErr:    nil,
		},
		{
			name:    "wrong scheme pk_",
			token:   "pk_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "short prefix 3 chars",
			token:   "rcp_abc_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "short secret 8 chars",
			token:   "rcp_abc123_4f8d2e1b",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "long secret 33 chars",
			token:   "rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1bx",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "empty string",
			token:   "",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "just invalid",
			token:   "invalid",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "rcp_ only",
			token:   "rcp_",
			wantErr: ErrInvalidTokenFormat,
		},
		{
			name:    "uppercase hex",
			token:   "rcp_ABC123_4F8D2E1B9C7A5F3D2E1B9C7A5F3D2E1B",
			wantErr: ErrInvalidTokenFormat,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseToken(tt.token)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("ParseToken(%q) error = %v, want %v", tt.token, err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseToken(%q) unexpected error: %v", tt.token, err)
			}

			if parsed.Prefix != tt.wantPrefix {
				t.Errorf("Prefix = %s, want %s", parsed.Prefix, tt.wantPrefix)
			}

			if parsed.Secret != tt.wantSecret {
				t.Errorf("Secret = %s, want %s", parsed.Secret, tt.wantSecret)
			}
		})
	}
}

func TestValidateTokenFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", "rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", true},
		{"another valid token", "rcp_def456_0123456789abcdef0123456789abcdef", true},
		{"not a token", "not-a-token", false},
		{"wrong scheme", "pk_live_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b", false},
		{"empty", "", false},
		{"trailing garbage", "rcp_abc123_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b extra", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ValidateTokenFormat(tt.token)
			if got != tt.want {
				t.Errorf("ValidateTokenFormat(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
