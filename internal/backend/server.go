package backend

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/enone-pay/enone/internal/config"
	"github.com/enone-pay/enone/internal/ledger"
	"github.com/enone-pay/enone/internal/middleware"
)

// Backend is the development stub serving the wallet API. It keeps accounts
// and balances in memory and accepts the configured dev OTP for every
// verification code.
type Backend struct {
	cfg      config.StubConfig
	app      *fiber.App
	users    *userStore
	ledger   ledger.Ledger
	signups  *signupStore
	registry *identityRegistry
	logger   *slog.Logger
}

// New assembles the stub. The Redis client is optional; without it the
// idempotency and login rate-limit middleware are skipped.
func New(cfg config.StubConfig, cache *redis.Client, logger *slog.Logger) *Backend {
	b := &Backend{
		cfg:      cfg,
		users:    newUserStore(),
		ledger:   ledger.NewInMemory(),
		signups:  newSignupStore(30 * time.Minute),
		registry: newIdentityRegistry(),
		logger:   logger,
	}

	app := fiber.New(fiber.Config{
		AppName:      "enone-stub",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(logger))
	if cache != nil {
		app.Use(middleware.Idempotency(cache, cfg.IdempotencyTTL, logger))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := app.Group("/api/auth")
	auth.Post("/login", middleware.LoginRateLimit(cache, 10), b.handleLogin)

	authed := auth.Group("", middleware.BearerAuth(b.verifyToken))
	authed.Get("/me", b.handleMe)

	authed.Get("/2fa/status", b.handleTwoFactorStatus)
	authed.Post("/2fa/generate", b.handleTwoFactorGenerate)
	authed.Post("/2fa/verify", b.handleTwoFactorVerify)
	authed.Post("/2fa/disable", b.handleTwoFactorDisable)
	authed.Get("/2fa/current-code", b.handleTwoFactorCurrentCode)

	authed.Post("/change-email/request", b.handleChangeEmailRequest)
	authed.Post("/change-email/verify-phone", b.handleVerifyDevCode)
	authed.Post("/change-email/send-new-email", b.handleSendNewEmail)
	authed.Post("/change-email/confirm-new-email", b.handleConfirmNewEmail)

	authed.Post("/change-phone/request", b.handleChangePhoneRequest)
	authed.Post("/change-phone/verify-email", b.handleVerifyDevCode)
	authed.Post("/change-phone/send-new-phone", b.handleSendNewPhone)
	authed.Post("/change-phone/confirm-new-phone", b.handleConfirmNewPhone)

	authed.Post("/change-limit/request", b.handleChangeLimitRequest)
	authed.Post("/change-limit/confirm", b.handleChangeLimitConfirm)

	authed.Post("/request-deletion-code", b.handleRequestDeletionCode)
	authed.Post("/delete-account", b.handleDeleteAccount)

	onboarding := app.Group("/api/onboarding")
	onboarding.Post("/start", b.handleOnboardingStart)
	onboarding.Post("/resend-email", b.handleOnboardingResend)
	onboarding.Post("/resend-phone", b.handleOnboardingResend)
	onboarding.Post("/verify-email-code", b.handleOnboardingVerifyEmail)
	onboarding.Post("/verify-phone", b.handleOnboardingVerifyPhone)
	onboarding.Post("/complete", b.handleOnboardingComplete)

	wallet := app.Group("/api/wallet", middleware.BearerAuth(b.verifyToken))
	wallet.Get("/all", b.handleWallets)
	wallet.Get("/transactions", b.handleTransactions)
	wallet.Get("/exchange-rate", b.handleExchangeRate)
	wallet.Get("/validate-recipient", b.handleValidateRecipient)
	wallet.Post("/deposit", b.handleDeposit)
	wallet.Post("/withdraw", b.handleWithdraw)
	wallet.Post("/convert", b.handleConvert)
	wallet.Post("/transfer", b.handleTransfer)
	wallet.Get("/activar-tarjeta/status", b.handleCardStatus)
	wallet.Post("/activar-tarjeta", b.handleActivateCard)
	wallet.Post("/desactivar-tarjeta", b.handleDeactivateCard)

	b.app = app
	return b
}

// Listen starts the HTTP server on the configured address.
func (b *Backend) Listen() error {
	return b.app.Listen(b.cfg.Address())
}

// Listener serves on an already-bound listener, for tests.
func (b *Backend) Listener(ln net.Listener) error {
	return b.app.Listener(ln)
}

// Shutdown gracefully stops the HTTP server.
func (b *Backend) Shutdown(ctx context.Context) error {
	return b.app.ShutdownWithContext(ctx)
}

// SeedUser registers an account with funded wallets, for local development
// and tests. It returns the created user's ID.
func (b *Backend) SeedUser(username, email, phone, password, firstName, lastName, document string, roles []string, penBalance string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	u := &User{
		Username:       username,
		Email:          email,
		Phone:          phone,
		PasswordHash:   hash,
		FirstName:      firstName,
		LastName:       lastName,
		DocumentNumber: document,
		Roles:          roles,
		DailyLimit:     decimal.NewFromInt(500),
	}
	if err := b.users.Create(u); err != nil {
		return "", err
	}
	ctx := context.Background()
	if _, err := b.ledger.EnsureWallet(ctx, u.ID, "PEN"); err != nil {
		return "", err
	}
	if _, err := b.ledger.EnsureWallet(ctx, u.ID, "USD"); err != nil {
		return "", err
	}
	if penBalance != "" && penBalance != "0" {
		amount, err := decimal.NewFromString(penBalance)
		if err != nil {
			return "", err
		}
		if _, err := b.ledger.Deposit(ctx, u.ID, "PEN", "seed-"+u.ID, amount, "Depósito inicial"); err != nil {
			return "", err
		}
	}
	return u.ID, nil
}

// SeedRegistry loads an identity-registry row used to vet onboarding.
func (b *Backend) SeedRegistry(dni, firstName, lastName string, birthDate time.Time) {
	b.registry.Add(dni, registryPerson{FirstName: firstName, LastName: lastName, BirthDate: birthDate})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data, "message": ""})
}

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "code": code, "error": message})
}

func (b *Backend) userFrom(c *fiber.Ctx) (*User, error) {
	id, _ := c.Locals(middleware.UserIDLocal).(string)
	return b.users.ByID(id)
}
