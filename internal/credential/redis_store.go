package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "cred"
	maxTxRetries       = 8
)

// ErrStoreUnavailable wraps transport failures from a remote store.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// RedisStore shares credentials between replicas. Entries carry their own
// expires_at and a matching key TTL; compare operations run inside WATCH
// transactions and retry on contention.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	clock  Clock
}

// NewRedisStore builds a store using keys "<prefix>:otp:<id>" and
// "<prefix>:rst:<token>".
func NewRedisStore(client redis.UniversalClient, prefix string, clock Clock) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix, clock: clock}
}

func (s *RedisStore) otpKey(requestID string) string {
	return s.prefix + ":otp:" + requestID
}

func (s *RedisStore) resetKey(token string) string {
	return s.prefix + ":rst:" + token
}

func (s *RedisStore) PutOTP(ctx context.Context, requestID string, entry OTPEntry, ttl time.Duration) error {
	entry.RequestID = requestID
	entry.ExpiresAt = s.clock.now().Add(ttl)
	return s.set(ctx, s.otpKey(requestID), entry, ttl)
}

func (s *RedisStore) GetOTP(ctx context.Context, requestID string) (OTPEntry, error) {
	var entry OTPEntry
	if err := s.get(ctx, s.otpKey(requestID), &entry); err != nil {
		return OTPEntry{}, err
	}
	if !s.clock.now().Before(entry.ExpiresAt) {
		_ = s.del(ctx, s.otpKey(requestID))
		return OTPEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *RedisStore) DeleteOTP(ctx context.Context, requestID string) error {
	return s.del(ctx, s.otpKey(requestID))
}

func (s *RedisStore) IncrementOTPAttempts(ctx context.Context, requestID string) error {
	_, err := s.mutateOTP(ctx, requestID, func(entry *OTPEntry) otpAction {
		entry.Attempts++
		return otpWrite
	})
	return err
}

func (s *RedisStore) CompareAndSwapOTPAttempts(ctx context.Context, requestID string, expected, next int) (bool, error) {
	return s.mutateOTP(ctx, requestID, func(entry *OTPEntry) otpAction {
		if entry.Attempts != expected {
			return otpKeep
		}
		entry.Attempts = next
		return otpWrite
	})
}

func (s *RedisStore) CompareAndDeleteOTP(ctx context.Context, requestID string, expectedAttempts int) (bool, error) {
	return s.mutateOTP(ctx, requestID, func(entry *OTPEntry) otpAction {
		if entry.Attempts != expectedAttempts {
			return otpKeep
		}
		return otpDelete
	})
}

func (s *RedisStore) PutResetToken(ctx context.Context, token string, entry ResetToken, ttl time.Duration) error {
	entry.Token = token
	entry.ExpiresAt = s.clock.now().Add(ttl)
	return s.set(ctx, s.resetKey(token), entry, ttl)
}

func (s *RedisStore) GetResetToken(ctx context.Context, token string) (ResetToken, error) {
	var entry ResetToken
	if err := s.get(ctx, s.resetKey(token), &entry); err != nil {
		return ResetToken{}, err
	}
	if !s.clock.now().Before(entry.ExpiresAt) {
		_ = s.del(ctx, s.resetKey(token))
		return ResetToken{}, ErrNotFound
	}
	return entry, nil
}

func (s *RedisStore) DeleteResetToken(ctx context.Context, token string) error {
	return s.del(ctx, s.resetKey(token))
}

func (s *RedisStore) TakeResetToken(ctx context.Context, token string) (ResetToken, error) {
	data, err := s.redis.GetDel(ctx, s.resetKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ResetToken{}, ErrNotFound
		}
		return ResetToken{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var entry ResetToken
	if err := json.Unmarshal(data, &entry); err != nil {
		return ResetToken{}, fmt.Errorf("decode reset token: %w", err)
	}
	if !s.clock.now().Before(entry.ExpiresAt) {
		return ResetToken{}, ErrNotFound
	}
	return entry, nil
}

type otpAction int

const (
	otpKeep otpAction = iota
	otpWrite
	otpDelete
)

// mutateOTP applies fn to the live entry inside a WATCH transaction. It
// reports whether fn asked for a write or delete and the transaction
// committed. A missing or expired entry yields false.
func (s *RedisStore) mutateOTP(ctx context.Context, requestID string, fn func(entry *OTPEntry) otpAction) (bool, error) {
	key := s.otpKey(requestID)

	for i := 0; i < maxTxRetries; i++ {
		applied := false

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var entry OTPEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("decode otp entry: %w", err)
			}

			now := s.clock.now()
			if !now.Before(entry.ExpiresAt) {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrNotFound
			}

			action := fn(&entry)
			switch action {
			case otpKeep:
				return nil
			case otpDelete:
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
			case otpWrite:
				payload, encErr := json.Marshal(entry)
				if encErr != nil {
					return encErr
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, payload, entry.ExpiresAt.Sub(now))
					return nil
				})
			}
			if err != nil {
				return err
			}
			applied = true
			return nil
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return applied, nil
	}

	return false, fmt.Errorf("%w: otp %s contended after %d retries", ErrStoreUnavailable, requestID, maxTxRetries)
}

func (s *RedisStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) del(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
