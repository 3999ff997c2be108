package redis

import (
	"context"
	"log"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glamqueue/glamqueue/internal/store"
	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rStore  *Redis
	rdis    *miniredis.Miniredis
	ctx     = context.Background()
	mockOTP = models.OTP{
		Namespace:   "glamqueue",
		Email:       "a@x.com",
		Code:        "482913",
		SecretHash:  "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		MaxAttempts: 3,
		TTL:         2 * time.Second,
		TTLSeconds:  2,
	}
)

func init() {
	rd, err := miniredis.Run()
	if err != nil {
		log.Println(err)
	}
	rdis = rd

	port, _ := strconv.Atoi(rd.Port())
	rStore = New(Conf{
		Host: rd.Host(),
		Port: port,
	})
}

func setup(t *testing.T) *Redis {
	rdis.FlushDB()
	_, err := rStore.Set(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP)
	require.NoError(t, err, "Failed to set up test OTP")

	t.Cleanup(func() {
		rdis.FlushDB()
	})

	return rStore
}

func TestStoreSet(t *testing.T) {
	rStore := setup(t)

	resp, err := rStore.Set(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP)
	assert.NoError(t, err, "Error setting OTP")

	cmp := mockOTP
	cmp.Attempts = resp.Attempts
	cmp.TTL = resp.TTL
	cmp.TTLSeconds = resp.TTLSeconds
	assert.Equal(t, cmp, resp, "Returned OTP doesn't match expected OTP")
}

func TestStoreSetReplaces(t *testing.T) {
	rStore := setup(t)

	// Burn some attempts on the first code.
	_, err := rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, true)
	require.NoError(t, err)

	// A resend replaces the code and resets the counter.
	next := mockOTP
	next.Code = "107344"
	o, err := rStore.Set(ctx, mockOTP.Namespace, mockOTP.Email, next)
	assert.NoError(t, err, "Error replacing OTP")
	assert.Equal(t, 0, o.Attempts, "Attempt counter wasn't reset on resend")

	got, err := rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, false)
	assert.NoError(t, err)
	assert.Equal(t, next.Code, got.Code, "Old code survived a resend")
}

func TestStoreCheck(t *testing.T) {
	rStore := setup(t)

	t.Run("no increment", func(t *testing.T) {
		o, err := rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, false)
		assert.NoError(t, err, "Error checking OTP without increment")
		assert.Equal(t, 0, o.Attempts, "Unexpected attempt count")
	})

	t.Run("with increment", func(t *testing.T) {
		o, err := rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, true)
		assert.NoError(t, err, "Error checking OTP with increment")
		assert.Equal(t, 1, o.Attempts, "Unexpected attempt count after first increment")

		o, err = rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, true)
		assert.NoError(t, err, "Error checking OTP with second increment")
		assert.Equal(t, 2, o.Attempts, "Unexpected attempt count after second increment")
	})
}

func TestStoreTTL(t *testing.T) {
	rStore := setup(t)

	o, err := rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, false)
	assert.NoError(t, err, "Error checking OTP")
	assert.Equal(t, mockOTP.TTL, o.TTL, "Returned OTP TTL doesn't match expected TTL")
}

func TestStoreVerify(t *testing.T) {
	rStore := setup(t)

	// Wrong code increments attempts and keeps the record.
	o, err := rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, "000000")
	assert.Equal(t, store.ErrCodeMismatch, err, "Wrong code didn't return a mismatch")
	assert.Equal(t, 1, o.Attempts, "Mismatch didn't increment attempts")

	// Correct code verifies and consumes.
	o, err = rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP.Code)
	assert.NoError(t, err, "Error verifying correct code")
	assert.Equal(t, mockOTP.SecretHash, o.SecretHash, "Consumed OTP lost its secret hash")

	// Consumed: a replay of the same code fails.
	_, err = rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP.Code)
	assert.Equal(t, store.ErrNotExist, err, "Consumed OTP was verifiable twice")
}

func TestStoreVerifyConcurrent(t *testing.T) {
	rStore := setup(t)

	// Race several verifications of the same code. Exactly one may
	// consume it; the losers see the record as gone, not an internal
	// transaction error.
	const n = 8
	errs := make(chan error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP.Code)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, store.ErrNotExist, err, "Losing verification leaked an internal error")
	}
	assert.Equal(t, 1, wins, "Code wasn't consumed exactly once")
}

func TestStoreVerifyLocked(t *testing.T) {
	rStore := setup(t)

	for i := 0; i < mockOTP.MaxAttempts; i++ {
		_, err := rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, "999999")
		assert.Equal(t, store.ErrCodeMismatch, err)
	}

	// Locked out: even the correct code no longer verifies.
	o, err := rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP.Code)
	assert.Equal(t, store.ErrCodeMismatch, err, "Locked OTP passed verification")
	assert.GreaterOrEqual(t, o.Attempts, o.MaxAttempts, "Lockout attempt count is off")
}

func TestStoreExpiry(t *testing.T) {
	rStore := setup(t)

	// miniredis doesn't tick TTLs on its own.
	rdis.FastForward(3 * time.Second)

	_, err := rStore.Verify(ctx, mockOTP.Namespace, mockOTP.Email, mockOTP.Code)
	assert.Equal(t, store.ErrNotExist, err, "Expired OTP was still verifiable")
}

func TestStoreDelete(t *testing.T) {
	rStore := setup(t)

	err := rStore.Delete(ctx, mockOTP.Namespace, mockOTP.Email)
	assert.NoError(t, err, "Error deleting OTP")

	_, err = rStore.Check(ctx, mockOTP.Namespace, mockOTP.Email, false)
	assert.Equal(t, store.ErrNotExist, err, "OTP should not exist but it does")
}
