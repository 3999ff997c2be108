package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role is an application-level role carried on a user's profile.
type Role string

const (
	RoleClient  Role = "client"
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// User is a backing identity. Accounts are only materialized after the
// e-mail OTP verification succeeds, so EmailVerified is true from birth
// for OTP signups.
type User struct {
	gorm.Model
	Email         string `json:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash  string `json:"-" gorm:"column:password_hash;not null"`
	EmailVerified bool   `json:"emailVerified" gorm:"column:email_verified;not null;default:false"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// Profile is the application-level record attached to a user identity.
type Profile struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email"`
	Role      Role      `json:"role" gorm:"not null;default:'client'"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Profile) TableName() string {
	return "profiles"
}
