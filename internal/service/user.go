package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/forkful/forkful/internal/auth"
	"github.com/forkful/forkful/internal/cache"
	"github.com/forkful/forkful/internal/metrics"
	"github.com/forkful/forkful/internal/model"
	"github.com/forkful/forkful/internal/repository"
)

// Service errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenNotFound      = errors.New("token not found")
	ErrSuperuserRequired  = errors.New("superuser privileges required")
)

// dummyHash is used to equalize login timing when the email is unknown,
// so the response time does not reveal whether an account exists.
var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func loginDummyHash() string {
	dummyHashOnce.Do(func() {
		h, err := auth.HashPassword("forkful-timing-padding")
		if err == nil {
			dummyHash = h
		}
	})
	return dummyHash
}

// UserService handles account and credential business logic.
type UserService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(repo *repository.Repository, cache *cache.Cache, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		repo:    repo,
		cache:   cache,
		metrics: recorder,
	}
}

// RegisterInput defines input for account registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register creates a new active account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email, err := validateEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	name, err := validateUserName(input.Name)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()

	return user, nil
}

// LoginInput defines input for the token endpoint.
type LoginInput struct {
	Email    string
	Password string
	// TokenName optionally labels the issued token ("cli", "mobile").
	TokenName string
}

// LoginOutput carries the issued credential.
type LoginOutput struct {
	// Token is the plaintext bearer token, shown exactly once.
	Token string
	// Record is the stored token row (hash only, no secret).
	Record *model.AuthToken
	// User is the authenticated account.
	User *model.User
}

// Login verifies credentials and issues a new bearer token.
// Unknown emails, wrong passwords and inactive accounts all return
// ErrInvalidCredentials so responses do not leak account state.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if input.Email == "" {
		return nil, newValidationError("email", "must not be blank")
	}
	if input.Password == "" {
		return nil, newValidationError("password", "must not be blank")
	}

	user, err := s.repo.GetUserByEmail(ctx, model.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a verification so unknown emails cost the same
			// as wrong passwords.
			_, _ = auth.VerifyPassword(input.Password, loginDummyHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := auth.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	generated, err := auth.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	token := &model.AuthToken{
		ID:          ulid.Make().String(),
		UserID:      user.ID,
		TokenHash:   generated.Hash,
		TokenPrefix: generated.Prefix,
		Name:        input.TokenName,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateAuthToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	s.metrics.IncUserLoggedIn()

	// Record last login without blocking the response.
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.repo.UpdateUserLastLogin(updateCtx, user.ID)
	}()

	return &LoginOutput{
		Token:  generated.Plaintext,
		Record: token,
		User:   user,
	}, nil
}

// GetMe retrieves the calling user's account.
func (s *UserService) GetMe(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateMeInput defines input for profile updates.
// Nil fields are left unchanged.
type UpdateMeInput struct {
	UserID   string
	Name     *string
	Email    *string
	Password *string
}

// UpdateMe updates the calling user's own profile.
func (s *UserService) UpdateMe(ctx context.Context, input UpdateMeInput) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		name, err := validateUserName(*input.Name)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}

	if input.Email != nil {
		email, err := validateEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}

	if input.Password != nil {
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

// ListTokens returns the calling user's tokens, newest first.
func (s *UserService) ListTokens(ctx context.Context, userID string) ([]*model.AuthToken, error) {
	return s.repo.ListAuthTokensByUserID(ctx, userID)
}

// LogoutInput identifies the presenting token to revoke.
type LogoutInput struct {
	TokenID string
	// CacheKey is the auth cache key derived from the presented
	// plaintext; its entry is dropped so the token dies immediately.
	CacheKey string
}

// Logout revokes the token used for the current request.
func (s *UserService) Logout(ctx context.Context, input LogoutInput) error {
	if err := s.repo.RevokeAuthToken(ctx, input.TokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	if input.CacheKey != "" {
		if err := s.cache.DeleteAuthContext(ctx, input.CacheKey); err != nil {
			// Log but don't fail - the entry expires within the TTL
			_ = err
		}
	}

	return nil
}

// RevokeTokenInput identifies a token to revoke by id.
type RevokeTokenInput struct {
	UserID  string
	TokenID string
}

// RevokeToken revokes one of the calling user's tokens.
// Tokens belonging to other users report not-found.
func (s *UserService) RevokeToken(ctx context.Context, input RevokeTokenInput) error {
	token, err := s.repo.GetAuthTokenByID(ctx, input.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return err
	}
	if token.UserID != input.UserID || token.IsRevoked() {
		return ErrTokenNotFound
	}

	if err := s.repo.RevokeAuthToken(ctx, input.TokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	return nil
}

// AdminListUsersInput defines input for the admin user listing.
type AdminListUsersInput struct {
	Query      string
	ActiveOnly bool
	Cursor     string
	Limit      int
}

// AdminListUsersOutput is a page of users.
type AdminListUsersOutput struct {
	Users      []*model.User
	NextCursor string
	HasMore    bool
}

// AdminListUsers retrieves a paginated user listing for staff.
func (s *UserService) AdminListUsers(ctx context.Context, input AdminListUsersInput) (*AdminListUsersOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}

	filter := repository.UserFilter{
		Query:      input.Query,
		ActiveOnly: input.ActiveOnly,
	}

	users, nextCursor, err := s.repo.ListUsers(ctx, filter, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, newValidationError("cursor", "invalid pagination cursor")
		}
		return nil, err
	}

	return &AdminListUsersOutput{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// AdminGetUser retrieves any account by id for staff.
func (s *UserService) AdminGetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// AdminCreateUserInput defines input for staff-created accounts.
type AdminCreateUserInput struct {
	Email       string
	Password    string
	Name        string
	IsStaff     bool
	IsSuperuser bool
	// ActorIsSuperuser reflects the caller; only superusers may mint
	// privileged accounts.
	ActorIsSuperuser bool
}

// AdminCreateUser creates an account on behalf of staff.
func (s *UserService) AdminCreateUser(ctx context.Context, input AdminCreateUserInput) (*model.User, error) {
	if (input.IsStaff || input.IsSuperuser) && !input.ActorIsSuperuser {
		return nil, ErrSuperuserRequired
	}

	user, err := s.Register(ctx, RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		return nil, err
	}

	if input.IsStaff || input.IsSuperuser {
		user.IsStaff = input.IsStaff
		user.IsSuperuser = input.IsSuperuser
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// AdminUpdateUserInput defines input for staff edits to an account.
// Nil fields are left unchanged.
type AdminUpdateUserInput struct {
	ID          string
	Name        *string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
	// ActorIsSuperuser reflects the caller; flag changes are
	// superuser-only.
	ActorIsSuperuser bool
}

// AdminUpdateUser applies staff edits to an account.
func (s *UserService) AdminUpdateUser(ctx context.Context, input AdminUpdateUserInput) (*model.User, error) {
	if (input.IsStaff != nil || input.IsSuperuser != nil) && !input.ActorIsSuperuser {
		return nil, ErrSuperuserRequired
	}

	user, err := s.repo.GetUserByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		name, err := validateUserName(*input.Name)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.IsStaff != nil {
		user.IsStaff = *input.IsStaff
	}
	if input.IsSuperuser != nil {
		user.IsSuperuser = *input.IsSuperuser
	}

	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Deactivation kills live sessions: revoke the user's tokens so a
	// cached auth context is the only remaining window (<= cache TTL).
	if input.IsActive != nil && !*input.IsActive {
		if _, err := s.repo.RevokeAuthTokensByUserID(ctx, user.ID); err != nil {
			// Log but don't fail - auth also rejects inactive users
			_ = err
		}
	}

	return user, nil
}
