package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/glamqueue/glamqueue/internal/store"
	"github.com/glamqueue/glamqueue/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Redis implements a Redis Store.
type Redis struct {
	client *redis.Client
	conf   Conf
}

// Conf contains Redis configuration fields.
type Conf struct {
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	MaxActive int           `json:"max_active"`
	MaxIdle   int           `json:"max_idle"`
	Timeout   time.Duration `json:"timeout"`
	KeyPrefix string        `json:"key_prefix"`
}

// New returns a Redis implementation of store.
func New(c Conf) *Redis {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "OTP"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		ReadTimeout:  c.Timeout,
	})

	return &Redis{
		conf:   c,
		client: client,
	}
}

// Ping checks if the Redis server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set upserts the OTP against the e-mail address, replacing any earlier
// unconsumed code and resetting the attempt counter. The key expires
// with the record's TTL, so stale codes evict themselves.
func (r *Redis) Set(ctx context.Context, namespace, email string, otp models.OTP) (models.OTP, error) {
	key := r.makeKey(namespace, email)

	txf := func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HMSet(ctx, key,
				"code", otp.Code,
				"secret_hash", otp.SecretHash,
				"attempts", 0,
				"max_attempts", otp.MaxAttempts)
			pipe.PExpire(ctx, key, otp.TTL)
			return nil
		})
		return err
	}

	// Watch the key so a concurrent resend aborts rather than interleaves.
	if err := r.client.Watch(ctx, txf, key); err != nil {
		return otp, err
	}

	otp.Attempts = 0
	otp.TTLSeconds = otp.TTL.Seconds()
	otp.Namespace = namespace
	otp.Email = email

	return otp, nil
}

// Check checks the attempt count and TTL duration against an e-mail address.
// Passing counter=true increments the attempt counter.
func (r *Redis) Check(ctx context.Context, namespace, email string, counter bool) (models.OTP, error) {
	out, err := r.get(ctx, namespace, email)
	if err != nil {
		return out, err
	}
	if !counter {
		return out, nil
	}

	key := r.makeKey(namespace, email)

	pipe := r.client.TxPipeline()
	attempts := pipe.HIncrBy(ctx, key, "attempts", 1)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return out, err
	}

	out.Attempts = int(attempts.Val())
	out.TTL = ttl.Val()
	out.TTLSeconds = out.TTL.Seconds()

	return out, nil
}

// Verify compares the submitted code against the stored one inside a
// WATCH transaction and deletes the record on a match. Exactly one
// concurrent Verify can consume a given code; the rest see ErrNotExist.
func (r *Redis) Verify(ctx context.Context, namespace, email, code string) (models.OTP, error) {
	var (
		key = r.makeKey(namespace, email)
		out = models.OTP{Namespace: namespace, Email: email}

		verifyErr error
	)

	txf := func(tx *redis.Tx) error {
		if err := tx.HGetAll(ctx, key).Scan(&out); err != nil {
			return err
		}
		if out.Code == "" {
			return store.ErrNotExist
		}

		ttl, err := tx.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		out.TTL = ttl
		out.TTLSeconds = ttl.Seconds()

		locked := out.Attempts >= out.MaxAttempts
		if locked || subtle.ConstantTimeCompare([]byte(out.Code), []byte(code)) != 1 {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HIncrBy(ctx, key, "attempts", 1)
				return nil
			})
			if err != nil {
				return err
			}
			out.Attempts++
			verifyErr = store.ErrCodeMismatch
			return nil
		}

		// Consume.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}

	if err := r.client.Watch(ctx, txf, key); err != nil {
		// A lost WATCH race means somebody else consumed or replaced the
		// record first; to this caller the code no longer exists.
		if errors.Is(err, redis.TxFailedErr) {
			return out, store.ErrNotExist
		}
		return out, err
	}
	return out, verifyErr
}

// Delete deletes the OTP saved against a given e-mail address.
func (r *Redis) Delete(ctx context.Context, namespace, email string) error {
	return r.client.Del(ctx, r.makeKey(namespace, email)).Err()
}

// makeKey makes the Redis key for the OTP.
func (r *Redis) makeKey(namespace, email string) string {
	return fmt.Sprintf("%s:%s:%s", r.conf.KeyPrefix, namespace, email)
}

// get retrieves the OTP information from Redis based on the namespace
// and e-mail address.
func (r *Redis) get(ctx context.Context, namespace, email string) (models.OTP, error) {
	key := r.makeKey(namespace, email)
	out := models.OTP{
		Namespace: namespace,
		Email:     email,
	}

	if err := r.client.HGetAll(ctx, key).Scan(&out); err != nil {
		return out, err
	}

	// Doesn't exist?
	if out.Code == "" {
		return out, store.ErrNotExist
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return out, err
	}

	out.TTL = ttl
	out.TTLSeconds = ttl.Seconds()
	return out, nil
}
