package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/admission-portal/admission_portal/internal/auth"
	"github.com/admission-portal/admission_portal/internal/config"
	"github.com/admission-portal/admission_portal/internal/credential"
	"github.com/admission-portal/admission_portal/internal/draft"
	"github.com/admission-portal/admission_portal/internal/identity"
	"github.com/admission-portal/admission_portal/internal/logging"
	"github.com/admission-portal/admission_portal/internal/middleware"
	"github.com/admission-portal/admission_portal/internal/notification"
	"github.com/admission-portal/admission_portal/internal/wizard"
)

// Deps aggregates shared dependencies required to wire routes. Nil DB and
// Cache select the in-memory repositories; a nil Credentials store is
// replaced by a fresh MemoryStore without a reaper.
type Deps struct {
	Cfg         config.Config
	DB          *pgxpool.Pool
	Cache       *redis.Client
	Logger      *slog.Logger
	Credentials credential.Store
	Notifier    notification.Notifier
	Steps       *wizard.Registry
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in the format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(logging.Component(d.Logger, "http")))

	RegisterHealthRoutes(app, d)

	notifier := d.Notifier
	if notifier == nil {
		var err error
		if notifier, err = NewNotifier(d.Cfg, d.Logger); err != nil {
			return err
		}
	}
	store := d.Credentials
	if store == nil {
		store = credential.NewMemoryStore(nil)
	}

	var (
		identityRepo identity.Repository
		draftRepo    draft.Repository
	)
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
		draftRepo = draft.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
		draftRepo = draft.NewMemoryRepository()
	}

	credLogger := logging.Component(d.Logger, "credential")
	issuer := credential.NewIssuer(store, notifier, credLogger, credential.IssuerOptions{
		OTPTTL:    d.Cfg.OTPTTL,
		VerifyURL: d.Cfg.AppURL + "/auth/verify-email",
	})
	gate := credential.NewGate(store, credLogger, credential.GateOptions{
		MaxAttempts:   d.Cfg.OTPMaxAttempts,
		ResetTokenTTL: d.Cfg.ResetTokenTTL,
	})

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	steps := d.Steps
	if steps == nil {
		steps = wizard.AdmissionRegistry()
	}
	wizardHandler := wizard.NewHandler(wizard.NewNavigator(steps), draft.NewService(draftRepo), func(c *fiber.Ctx) string {
		uid, _ := c.Locals(auth.LocalUserID).(string)
		return uid
	})

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	var cache redis.UniversalClient
	if d.Cache != nil {
		cache = d.Cache
	}

	RegisterAuthRoutes(api, AuthHandlers{
		Identity:    identity.NewHandler(identitySvc, issuer, logging.Component(d.Logger, "identity")),
		Session:     auth.NewHandler(identitySvc, authSvc),
		Recovery:    credential.NewHandler(issuer, gate, identitySvc),
		SendLimit:   middleware.OTPSendLimit(cache, d.Cfg.OTPSendPerMinute, d.Logger),
		Idempotency: idempotency,
		RequireAuth: middleware.JWTAuth(authSvc),
	})
	RegisterProfileRoutes(api, wizardHandler, middleware.JWTAuth(authSvc))

	return nil
}

// NewNotifier picks SMTP when configured. Development falls back to logging
// messages; other environments refuse to start without a relay.
func NewNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	if cfg.SMTP.Configured() {
		return notification.NewSMTPNotifier(cfg.SMTP), nil
	}
	if cfg.IsDev() {
		logger.Warn("SMTP not configured, notifications are logged instead of sent")
		return notification.NewLoggerNotifier(logging.Component(logger, "notification")), nil
	}
	return nil, fmt.Errorf("SMTP must be configured when APP_ENV=%s", cfg.AppEnv)
}
