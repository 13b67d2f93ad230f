package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps credentials in process memory behind a single mutex.
// No I/O happens while the lock is held.
type MemoryStore struct {
	mu     sync.Mutex
	clock  Clock
	otps   map[string]OTPEntry
	resets map[string]ResetToken

	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// NewMemoryStore allocates an empty store. A nil clock means time.Now.
func NewMemoryStore(clock Clock) *MemoryStore {
	return &MemoryStore{
		clock:  clock,
		otps:   make(map[string]OTPEntry),
		resets: make(map[string]ResetToken),
	}
}

func (s *MemoryStore) PutOTP(_ context.Context, requestID string, entry OTPEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.RequestID = requestID
	entry.ExpiresAt = s.clock.now().Add(ttl)
	s.otps[requestID] = entry
	return nil
}

func (s *MemoryStore) GetOTP(_ context.Context, requestID string) (OTPEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveOTP(requestID)
	if !ok {
		return OTPEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) DeleteOTP(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.otps, requestID)
	return nil
}

func (s *MemoryStore) IncrementOTPAttempts(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.liveOTP(requestID); ok {
		entry.Attempts++
		s.otps[requestID] = entry
	}
	return nil
}

func (s *MemoryStore) CompareAndSwapOTPAttempts(_ context.Context, requestID string, expected, next int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveOTP(requestID)
	if !ok || entry.Attempts != expected {
		return false, nil
	}
	entry.Attempts = next
	s.otps[requestID] = entry
	return true, nil
}

func (s *MemoryStore) CompareAndDeleteOTP(_ context.Context, requestID string, expectedAttempts int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveOTP(requestID)
	if !ok || entry.Attempts != expectedAttempts {
		return false, nil
	}
	delete(s.otps, requestID)
	return true, nil
}

func (s *MemoryStore) PutResetToken(_ context.Context, token string, entry ResetToken, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Token = token
	entry.ExpiresAt = s.clock.now().Add(ttl)
	s.resets[token] = entry
	return nil
}

func (s *MemoryStore) GetResetToken(_ context.Context, token string) (ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveReset(token)
	if !ok {
		return ResetToken{}, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) DeleteResetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resets, token)
	return nil
}

func (s *MemoryStore) TakeResetToken(_ context.Context, token string) (ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.liveReset(token)
	if !ok {
		return ResetToken{}, ErrNotFound
	}
	delete(s.resets, token)
	return entry, nil
}

// liveOTP must be called with mu held.
func (s *MemoryStore) liveOTP(requestID string) (OTPEntry, bool) {
	entry, ok := s.otps[requestID]
	if !ok {
		return OTPEntry{}, false
	}
	if !s.clock.now().Before(entry.ExpiresAt) {
		delete(s.otps, requestID)
		return OTPEntry{}, false
	}
	return entry, true
}

// liveReset must be called with mu held.
func (s *MemoryStore) liveReset(token string) (ResetToken, bool) {
	entry, ok := s.resets[token]
	if !ok {
		return ResetToken{}, false
	}
	if !s.clock.now().Before(entry.ExpiresAt) {
		delete(s.resets, token)
		return ResetToken{}, false
	}
	return entry, true
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.now()
	removed := 0
	for id, entry := range s.otps {
		if !now.Before(entry.ExpiresAt) {
			delete(s.otps, id)
			removed++
		}
	}
	for token, entry := range s.resets {
		if !now.Before(entry.ExpiresAt) {
			delete(s.resets, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.otps) + len(s.resets)
}

// StartReaper sweeps expired entries every interval until ctx is cancelled
// or Close is called. Calling it twice replaces the previous reaper.
func (s *MemoryStore) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.stopReaperAndWait()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.stopReaper = cancel
	s.reaperDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the reaper and clears all entries.
func (s *MemoryStore) Close() error {
	s.stopReaperAndWait()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps = make(map[string]OTPEntry)
	s.resets = make(map[string]ResetToken)
	return nil
}

func (s *MemoryStore) stopReaperAndWait() {
	s.mu.Lock()
	cancel, done := s.stopReaper, s.reaperDone
	s.stopReaper, s.reaperDone = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
