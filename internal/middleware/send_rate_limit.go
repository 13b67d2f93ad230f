package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	sendLimitPrefix   = "rl:otp:"
	localLimiterSweep = 4096
)

// OTPSendLimit caps recovery code requests per email address (or client IP
// when the body carries none). Redis counts per fixed minute so replicas share
// the budget; without Redis a per-process token bucket is used instead.
func OTPSendLimit(cache redis.UniversalClient, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	local := newLocalLimiter(maxPerMin)
	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = c.IP()
		}

		if cache == nil {
			if !local.allow(subject) {
				return fiber.NewError(http.StatusTooManyRequests, "too many code requests, try again later")
			}
			return c.Next()
		}

		key := sendLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("otp send limit unavailable", slog.Any("error", err))
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many code requests, try again later")
		}
		return c.Next()
	}
}

type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLocalLimiter(perMinute int) *localLimiter {
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (l *localLimiter) allow(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) >= localLimiterSweep {
		l.sweep()
	}
	lim, ok := l.limiters[subject]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[strings.Clone(subject)] = lim
	}
	return lim.Allow()
}

// sweep drops buckets that have refilled; they behave like fresh ones.
func (l *localLimiter) sweep() {
	for subject, lim := range l.limiters {
		if lim.Tokens() >= float64(l.burst) {
			delete(l.limiters, subject)
		}
	}
}
