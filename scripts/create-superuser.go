package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/repository"
)

type output struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
	TokenID     string `json:"token_id"`
	Token       string `json:"token"`
	TokenPrefix string `json:"token_prefix"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@forkful.local", "Superuser email")
		name        = flag.String("name", "Admin", "Superuser display name")
		password    = flag.String("password", "", "Superuser password (generated when empty)")
		tokenName   = flag.String("token-name", "bootstrap", "Name for the issued token")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	user, generatedPassword, err := ensureSuperuser(ctx, repo, *email, *name, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	generated, err := auth.GenerateToken()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate token:", err)
		os.Exit(1)
	}

	token := &model.AuthToken{
		ID:          ulid.Make().String(),
		UserID:      user.ID,
		TokenHash:   generated.Hash,
		TokenPrefix: generated.Prefix,
		Name:        *tokenName,
		CreatedAt:   time.Now().UTC(),
	}

	if err := repo.CreateAuthToken(ctx, token); err != nil {
		fmt.Fprintln(os.Stderr, "create token:", err)
		os.Exit(1)
	}

	out := output{
		UserID:      user.ID,
		Email:       user.Email,
		Password:    generatedPassword,
		TokenID:     token.ID,
		Token:       generated.Plaintext,
		TokenPrefix: token.TokenPrefix,
	}

	switch strings.ToLower(*format) {
	case "plain":
		if generatedPassword != "" {
			fmt.Fprintf(os.Stderr, "generated password: %s\n", generatedPassword)
		}
		fmt.Println(out.Token)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensureSuperuser finds or creates the superuser account. The returned
// password is non-empty only when the account was created with a
// generated one.
func ensureSuperuser(ctx context.Context, repo *repository.Repository, email, name, password string) (*model.User, string, error) {
	normalized := model.NormalizeEmail(email)

	existing, err := repo.GetUserByEmail(ctx, normalized)
	if err == nil {
		if !existing.IsSuperuser {
			return nil, "", fmt.Errorf("user %s exists but is not a superuser", normalized)
		}
		return existing, "", nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, "", fmt.Errorf("look up user: %w", err)
	}

	generatedPassword := ""
	if password == "" {
		raw := make([]byte, 16)
		if _, err := rand.Read(raw); err != nil {
			return nil, "", fmt.Errorf("generate password: %w", err)
		}
		password = hex.EncodeToString(raw)
		generatedPassword = password
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        normalized,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	return user, generatedPassword, nil
}
