package account

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glamqueue/glamqueue/internal/auth"
	"github.com/glamqueue/glamqueue/internal/database"
	"github.com/glamqueue/glamqueue/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerodha/logf"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testEmail    = "a@x.com"
	testPassword = "hunter2hunter2"
)

var ctx = context.Background()

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	tokens, err := auth.New("test-secret", time.Hour)
	require.NoError(t, err)

	return NewService(db, tokens, logf.New(logf.Opts{})), db
}

func hashOf(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(hash)
}

func TestMaterialize(t *testing.T) {
	s, _ := newTestService(t)

	id, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)

	assert.NotZero(t, id.User.ID)
	assert.Equal(t, testEmail, id.User.Email)
	assert.True(t, id.User.EmailVerified)
	assert.Equal(t, models.RoleClient, id.Profile.Role, "new profile isn't a client")
	assert.Equal(t, id.User.ID, id.Profile.UserID)
	assert.NotEmpty(t, id.Token, "no session token was issued")

	// The stored credential is a hash the original password verifies
	// against, never the password itself.
	assert.NotEqual(t, testPassword, id.User.PasswordHash)
	assert.NoError(t, id.User.CheckPassword(testPassword))
}

func TestMaterializeConverges(t *testing.T) {
	s, db := newTestService(t)

	first, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)

	// A repeated or racing signup for the same address reuses the
	// existing identity instead of failing on the unique index.
	second, err := s.Materialize(ctx, testEmail, hashOf(t, "another-secret"))
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)

	var users, profiles int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Profile{}).Count(&profiles).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, profiles)

	// The original credential survives the duplicate attempt.
	assert.NoError(t, second.User.CheckPassword(testPassword))
}

func TestMaterializeRecoversOrphanedProfileConflict(t *testing.T) {
	s, db := newTestService(t)

	// Simulate a half-finished signup: user row exists, profile exists,
	// but with a non-default role assigned out of band.
	id, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Profile{}).Where("user_id = ?", id.User.ID).
		Update("role", models.RoleStaff).Error)

	again, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, again.Profile.Role, "existing profile was clobbered")
}

func TestAuthenticate(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)

	id, err := s.Authenticate(ctx, testEmail, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, id.Token)
	assert.Equal(t, testEmail, id.User.Email)

	_, err = s.Authenticate(ctx, testEmail, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown users fail identically to a bad password.
	_, err = s.Authenticate(ctx, "nobody@x.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileFor(t *testing.T) {
	s, _ := newTestService(t)

	id, err := s.Materialize(ctx, testEmail, hashOf(t, testPassword))
	require.NoError(t, err)

	profile, err := s.ProfileFor(ctx, id.User.ID)
	require.NoError(t, err)
	assert.Equal(t, id.Profile.ID, profile.ID)
}
