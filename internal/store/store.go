package store

import (
	"context"
	"errors"

	"github.com/glamqueue/glamqueue/pkg/models"
)

// ErrNotExist is thrown when an OTP (requested by namespace / e-mail)
// does not exist or has expired.
var ErrNotExist = errors.New("the OTP does not exist")

// ErrCodeMismatch is thrown by Verify when the submitted code does not
// match the stored one, or when the attempt budget is exhausted. The
// attempt counter is incremented before this is returned.
var ErrCodeMismatch = errors.New("the OTP does not match")

// Store represents a storage backend where pending signup OTPs are kept.
// There is at most one live OTP per namespace+e-mail: Set replaces any
// earlier unconsumed code, and expiry is enforced by the backend's own
// TTL mechanism.
type Store interface {
	// Set upserts an OTP against an e-mail address with the record's TTL.
	// A resend therefore invalidates the previous code and resets the
	// attempt counter.
	Set(ctx context.Context, namespace, email string, otp models.OTP) (models.OTP, error)

	// Check returns the OTP stored against an e-mail address.
	// Passing counter=true increments the attempt counter.
	Check(ctx context.Context, namespace, email string, counter bool) (models.OTP, error)

	// Verify atomically compares the submitted code against the stored
	// one and consumes (deletes) the record on a match, so that two
	// concurrent verifications cannot both succeed. A mismatch or a
	// locked record increments the attempt counter and returns
	// ErrCodeMismatch along with the record.
	Verify(ctx context.Context, namespace, email, code string) (models.OTP, error)

	// Delete deletes the OTP saved against a given e-mail address.
	Delete(ctx context.Context, namespace, email string) error

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error
}
