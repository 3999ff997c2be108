// Package signup sequences the e-mail OTP signup flow: generate a code,
// store it, dispatch it, and later verify it and materialize the
// account.
package signup

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/glamqueue/glamqueue/internal/account"
	"github.com/glamqueue/glamqueue/internal/store"
	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/zerodha/logf"
	"golang.org/x/crypto/bcrypt"
)

const numChars = "0123456789"

var (
	// ErrInvalidOrExpired covers absent, expired, consumed and
	// mismatched codes alike; the caller can't tell which.
	ErrInvalidOrExpired = errors.New("invalid or expired verification code")

	// ErrTooManyAttempts means the attempt budget is exhausted and the
	// code is dead until it expires.
	ErrTooManyAttempts = errors.New("too many verification attempts")

	ErrBadAddress = errors.New("invalid e-mail address")
)

// Dispatcher pushes a composed verification message out to the user.
type Dispatcher interface {
	Send(otp models.OTP) error
}

// Accounts materializes a verified signup into a persisted identity.
type Accounts interface {
	Materialize(ctx context.Context, email, passwordHash string) (account.Identity, error)
}

// Opt are the signup flow knobs.
type Opt struct {
	Namespace   string
	OTPLen      int
	TTL         time.Duration
	MaxAttempts int
}

// Result is the outcome of a send: the issued code and whether dispatch
// reached the provider. The code is surfaced so non-production surfaces
// can display it; the HTTP layer decides whether to leak it.
type Result struct {
	Code       string `json:"code,omitempty"`
	Dispatched bool   `json:"dispatched"`
	TTL        int    `json:"ttl"`
}

// Service is the verification orchestrator.
type Service struct {
	store      store.Store
	dispatcher Dispatcher
	accounts   Accounts
	provider   models.Provider
	opt        Opt
	lo         logf.Logger
}

func NewService(st store.Store, d Dispatcher, a Accounts, p models.Provider, opt Opt, lo logf.Logger) *Service {
	if opt.OTPLen == 0 {
		opt.OTPLen = 6
	}
	if opt.TTL == 0 {
		opt.TTL = 5 * time.Minute
	}
	if opt.MaxAttempts == 0 {
		opt.MaxAttempts = 5
	}
	return &Service{
		store:      st,
		dispatcher: d,
		accounts:   a,
		provider:   p,
		opt:        opt,
		lo:         lo,
	}
}

// SendOTP issues a fresh code for the address, replacing any earlier
// unconsumed one, and dispatches it. Store and dispatch failures are
// non-fatal: the flow degrades to log-only delivery and the code is
// still returned to the caller.
func (s *Service) SendOTP(ctx context.Context, email, password string) (Result, error) {
	if err := s.provider.ValidateAddress(email); err != nil {
		return Result{}, ErrBadAddress
	}

	code, err := generateCode(s.opt.OTPLen)
	if err != nil {
		return Result{}, err
	}

	// The raw secret never reaches the store.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Result{}, err
	}

	otp := models.OTP{
		Namespace:   s.opt.Namespace,
		Email:       email,
		Code:        code,
		SecretHash:  string(hash),
		MaxAttempts: s.opt.MaxAttempts,
		TTL:         s.opt.TTL,
	}

	stored, err := s.store.Set(ctx, s.opt.Namespace, email, otp)
	if err != nil {
		// Degraded mode: the code can't be verified later, but the
		// operator can still see it and the UI flow stays alive.
		s.lo.Error("otp store unavailable, continuing in log-only mode", "error", err, "email", email)
		stored = otp
	}

	dispatched := true
	if err := s.dispatcher.Send(stored); err != nil {
		s.lo.Error("error dispatching verification code", "error", err, "provider", s.provider.ID(), "email", email)
		s.lo.Info("verification code for manual delivery", "email", email, "code", code)
		dispatched = false
	}

	return Result{
		Code:       code,
		Dispatched: dispatched,
		TTL:        int(s.opt.TTL.Seconds()),
	}, nil
}

// VerifyOTP consumes a matching, unexpired code and materializes the
// account. Consumption is atomic in the store, so a given code verifies
// at most once; a replay fails with ErrInvalidOrExpired.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (account.Identity, error) {
	otp, err := s.store.Verify(ctx, s.opt.Namespace, email, code)
	switch {
	case errors.Is(err, store.ErrNotExist):
		return account.Identity{}, ErrInvalidOrExpired
	case errors.Is(err, store.ErrCodeMismatch):
		if otp.Attempts > otp.MaxAttempts {
			return account.Identity{}, ErrTooManyAttempts
		}
		return account.Identity{}, ErrInvalidOrExpired
	case err != nil:
		s.lo.Error("error verifying code", "error", err, "email", email)
		return account.Identity{}, err
	}

	// The record is consumed at this point. Materialization failures
	// past here leave no dangling code; the user has to restart the
	// signup, which is the safe direction.
	id, err := s.accounts.Materialize(ctx, email, otp.SecretHash)
	if err != nil && !errors.Is(err, account.ErrSessionEstablish) {
		s.lo.Error("error materializing account", "error", err, "email", email)
		return account.Identity{}, err
	}
	return id, err
}

// generateCode generates a cryptographically random numeric code of
// length n. Bytes at or above the largest multiple of 10 below 256 are
// rejected so the modulo doesn't skew the digit distribution.
func generateCode(n int) (string, error) {
	const limit = 250

	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			out = append(out, numChars[v%byte(len(numChars))])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
