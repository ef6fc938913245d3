package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glamour-salon/salon_api/internal/auth"
	"github.com/glamour-salon/salon_api/internal/config"
	"github.com/glamour-salon/salon_api/internal/gate"
	"github.com/glamour-salon/salon_api/internal/identity"
	"github.com/glamour-salon/salon_api/internal/logging"
	"github.com/glamour-salon/salon_api/internal/middleware"
	"github.com/glamour-salon/salon_api/internal/notification"
	"github.com/glamour-salon/salon_api/internal/otp"
)

const otpVerifyPerMinute = 10

// Deps aggregates shared dependencies required to wire routes. Notifier and
// Google override the providers built from configuration.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
	Google   auth.GoogleVerifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if !d.Cfg.IsDev() && d.DB == nil {
		return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Cache == nil {
		d.Logger.Warn("redis not configured, rate limits and idempotency are disabled")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  d.Cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)

	notifier := d.Notifier
	if notifier == nil {
		notifier = buildNotifier(d.Cfg, d.Logger)
	}

	limiter := otp.NewLimiter(d.Cache, d.Cfg.OTP.ResendCooldown, d.Cfg.OTP.Window, d.Cfg.OTP.MaxPerWindow, d.Logger)
	otpSvc := otp.NewService(identityRepo, notifier, limiter, otp.Config{
		AppName:     d.Cfg.AppName,
		TTL:         d.Cfg.OTP.TTL,
		MaxAttempts: d.Cfg.OTP.MaxAttempts,
	}, d.Logger)

	tokens := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.SessionTTL, auth.WithIssuer(d.Cfg.AppName))

	google := d.Google
	if google == nil {
		if v := auth.NewIDTokenVerifier(d.Cfg.GoogleClientID); v != nil {
			google = v
		}
	}

	authSvc := auth.NewService(identitySvc, otpSvc, tokens, google, d.Logger)
	authHandler := auth.NewHandler(authSvc, d.Cfg.GoogleClientID, d.Logger)

	// API routes
	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAuthRoutes(api, authHandler, AuthMiddlewares{
		Login:       middleware.LoginRateLimit(d.Cache, d.Cfg.LoginMaxPerMinute),
		VerifyOTP:   middleware.OTPVerifyLimiter(otpVerifyPerMinute, time.Minute),
		Idempotency: middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
		Session:     middleware.SessionAuth(tokens),
	})
	RegisterGateRoutes(api, gate.NewHandler(gate.DefaultRules()))

	return nil
}

// buildNotifier routes email through SMTP and SMS through the provider chain
// when configured. Without SMTP, email falls back to the log-only notifier.
func buildNotifier(cfg config.Config, logger *slog.Logger) notification.Notifier {
	router := notification.NewRouter(logger)

	if cfg.SMTP.Enabled() {
		router.Register(notification.ChannelEmail, notification.NewEmailSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From))
	} else {
		if !cfg.IsDev() {
			logger.Warn("SMTP not configured, verification emails will only be logged")
		}
		router.Register(notification.ChannelEmail, notification.NewLoggerNotifier(logger))
	}

	chain := notification.NewSMSChain(
		notification.NewTwilioProvider(cfg.SMS.TwilioAccountSID, cfg.SMS.TwilioAuthToken, cfg.SMS.TwilioFrom),
		notification.NewGatewayProvider(cfg.SMS.GatewayURL, cfg.SMS.GatewayAPIKey, cfg.SMS.GatewaySender),
	)
	if chain.Len() > 0 {
		router.Register(notification.ChannelSMS, chain)
	}

	return router
}
