package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/admission-portal/admission_portal/internal/config"
	"github.com/admission-portal/admission_portal/internal/credential"
)

// NewCredentialStore builds the store named by CREDENTIAL_BACKEND. The memory
// store gets a reaper bound to ctx. The returned stop function must be called
// on shutdown; for the memory store it also wipes every outstanding credential.
func NewCredentialStore(ctx context.Context, cfg config.Config, cache *redis.Client, logger *slog.Logger) (credential.Store, func(), error) {
	switch cfg.CredentialBackend {
	case config.BackendRedis:
		if cache == nil {
			return nil, nil, fmt.Errorf("redis client is required for CREDENTIAL_BACKEND=%s", config.BackendRedis)
		}
		logger.Info("credential store ready", slog.String("backend", config.BackendRedis))
		return credential.NewRedisStore(cache, "cred", nil), func() {}, nil
	case config.BackendMemory, "":
		store := credential.NewMemoryStore(nil)
		store.StartReaper(ctx, cfg.ReapInterval)
		logger.Info("credential store ready",
			slog.String("backend", config.BackendMemory),
			slog.Duration("reap_interval", cfg.ReapInterval),
		)
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}
