// Package devlog is a diagnostic Provider for non-production contexts. Instead
// of delivering e-mail it writes the code to the structured log, where a
// developer or operator can retrieve it.
package devlog

import (
	"errors"
	"regexp"

	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/zerodha/logf"
)

const (
	providerID    = "devlog"
	channelName   = "Log"
	maxOTPLen     = 6
	maxAddressLen = 100
)

var reMail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// DevLog is a log-only e-mail Provider.
type DevLog struct {
	lo logf.Logger
}

// New returns a log-only Provider backend.
func New(lo logf.Logger) *DevLog {
	return &DevLog{lo: lo}
}

// ID returns the Provider's ID.
func (d *DevLog) ID() string {
	return providerID
}

// ChannelName returns the Provider's channel name.
func (d *DevLog) ChannelName() string {
	return channelName
}

// ValidateAddress "validates" an e-mail address.
func (d *DevLog) ValidateAddress(to string) error {
	if !reMail.MatchString(to) {
		return errors.New("invalid e-mail address")
	}
	return nil
}

// Push writes the code to the log instead of sending anything.
func (d *DevLog) Push(otp models.OTP, subject string, body []byte) error {
	d.lo.Info("verification code issued", "email", otp.Email, "code", otp.Code, "subject", subject)
	return nil
}

// MaxAddressLen returns the maximum allowed length of the e-mail address.
func (d *DevLog) MaxAddressLen() int {
	return maxAddressLen
}

// MaxOTPLen returns the maximum allowed length of the OTP value.
func (d *DevLog) MaxOTPLen() int {
	return maxOTPLen
}
