// Package account materializes verified signups into persisted user
// identities and profiles, and authenticates existing ones.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/glamqueue/glamqueue/internal/auth"
	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/zerodha/logf"
	"gorm.io/gorm"
)

var (
	// ErrSessionEstablish means the account exists but a session token
	// could not be issued; the user has to sign in manually.
	ErrSessionEstablish = errors.New("account created but session could not be established")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is a materialized account: the backing user, its profile and,
// when sign-in succeeded, a session token.
type Identity struct {
	User    models.User    `json:"user"`
	Profile models.Profile `json:"profile"`
	Token   string         `json:"token,omitempty"`
}

// Service creates and authenticates accounts.
type Service struct {
	db     *gorm.DB
	tokens *auth.Tokens
	lo     logf.Logger
}

func NewService(db *gorm.DB, tokens *auth.Tokens, lo logf.Logger) *Service {
	return &Service{db: db, tokens: tokens, lo: lo}
}

// Materialize creates the backing user with the already-hashed secret
// recovered from the OTP record, attaches a default client profile and
// signs the user in. Duplicate users and profiles are recovered by
// fetching the existing rows, so a racing duplicate attempt converges on
// the same identity instead of failing.
func (s *Service) Materialize(ctx context.Context, email, passwordHash string) (Identity, error) {
	user := models.User{
		Email:         email,
		PasswordHash:  passwordHash,
		EmailVerified: true,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return Identity{}, fmt.Errorf("creating user: %w", err)
		}
		// Concurrent or repeated signup; reuse the existing identity.
		if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
			return Identity{}, fmt.Errorf("fetching existing user: %w", err)
		}
		s.lo.Info("signup raced an existing account, reusing it", "email", email)
	}

	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{User: user, Profile: profile}

	token, err := s.tokens.Sign(user, profile.Role)
	if err != nil {
		s.lo.Error("error establishing session after signup", "error", err, "email", email)
		return id, ErrSessionEstablish
	}
	id.Token = token

	return id, nil
}

// Authenticate verifies an e-mail/password pair and issues a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}
	if err := user.CheckPassword(password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		return Identity{}, err
	}

	token, err := s.tokens.Sign(user, profile.Role)
	if err != nil {
		return Identity{}, ErrSessionEstablish
	}

	return Identity{User: user, Profile: profile, Token: token}, nil
}

// ProfileFor returns the profile attached to a user ID.
func (s *Service) ProfileFor(ctx context.Context, userID uint) (models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	return profile, err
}

// ensureProfile creates the default client profile for a user, or
// returns the existing one on a uniqueness conflict.
func (s *Service) ensureProfile(ctx context.Context, user models.User) (models.Profile, error) {
	profile := models.Profile{
		UserID: user.ID,
		Email:  user.Email,
		Role:   models.RoleClient,
	}

	err := s.db.WithContext(ctx).Create(&profile).Error
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return profile, fmt.Errorf("creating profile: %w", err)
	}

	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		return profile, fmt.Errorf("fetching existing profile: %w", err)
	}
	return profile, nil
}
