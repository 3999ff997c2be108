package models

import (
	"time"
)

// OTP is a pending e-mail verification code issued during signup.
// The signup password is bcrypt-hashed before it enters this record;
// the raw secret is never persisted.
type OTP struct {
	Namespace   string        `redis:"-" json:"namespace"`
	Email       string        `redis:"-" json:"email"`
	Code        string        `redis:"code" json:"-"`
	SecretHash  string        `redis:"secret_hash" json:"-"`
	MaxAttempts int           `redis:"max_attempts" json:"max_attempts"`
	Attempts    int           `redis:"attempts" json:"attempts"`
	TTL         time.Duration `redis:"-" json:"-"`
	TTLSeconds  float64       `redis:"-" json:"ttl"`
}

// Provider is an interface for a message delivery backend that pushes
// verification codes out to users, for instance SMTP or a transactional
// e-mail API.
type Provider interface {
	// ID returns the name of the Provider.
	ID() string

	// ChannelName returns the name of the channel the provider delivers
	// on, for example "E-mail".
	ChannelName() string

	// ValidateAddress validates the address the Provider is supposed
	// to send the OTP to.
	ValidateAddress(to string) error

	// Push pushes a composed message out.
	Push(otp OTP, subject string, body []byte) error

	// MaxAddressLen returns the maximum allowed length of the 'to' address.
	MaxAddressLen() int

	// MaxOTPLen returns the maximum allowed length of the OTP value.
	MaxOTPLen() int
}
