package backend

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/ledger"
)

func (b *Backend) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}

	u, err := b.users.Lookup(req.Username)
	if err != nil || !b.users.CheckPassword(u.ID, req.Password) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Credenciales inválidas")
	}

	token, err := b.issueToken(u)
	if err != nil {
		b.logger.Error("sign token", "error", err)
		return fail(c, http.StatusInternalServerError, "", "no se pudo iniciar sesión")
	}
	return ok(c, fiber.Map{"token": token})
}

func (b *Backend) handleMe(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	return ok(c, b.profileJSON(c, u))
}

func (b *Backend) profileJSON(c *fiber.Ctx, u *User) fiber.Map {
	return fiber.Map{
		"id":                    u.ID,
		"firstName":             u.FirstName,
		"lastName":              u.LastName,
		"email":                 u.Email,
		"phone":                 u.Phone,
		"documentNumber":        u.DocumentNumber,
		"dailyTransactionLimit": u.DailyLimit,
		"totalDailyVolumeInPen": b.dailyVolume(c.UserContext(), u.ID),
		"twoFactorEnabled":      u.TwoFactorEnabled,
		"createdAt":             u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (b *Backend) handleTwoFactorStatus(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	return ok(c, fiber.Map{"enabled": u.TwoFactorEnabled})
}

func (b *Backend) handleTwoFactorGenerate(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	secret := newTOTPSecret()
	if err := b.users.Update(u.ID, func(u *User) { u.TwoFactorSecret = secret }); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo generar el secreto")
	}
	return ok(c, fiber.Map{"secret": secret, "expiresIn": 300})
}

func (b *Backend) handleTwoFactorVerify(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	if err := b.users.Update(u.ID, func(u *User) { u.TwoFactorEnabled = true }); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo activar 2FA")
	}
	return ok(c, fiber.Map{"enabled": true})
}

func (b *Backend) handleTwoFactorDisable(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	if err := b.users.Update(u.ID, func(u *User) {
		u.TwoFactorEnabled = false
		u.TwoFactorSecret = ""
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo desactivar 2FA")
	}
	return ok(c, fiber.Map{"enabled": false})
}

func (b *Backend) handleTwoFactorCurrentCode(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !u.TwoFactorEnabled {
		return fail(c, http.StatusBadRequest, "", "2FA no está activado")
	}
	remaining := 30 - int(time.Now().Unix()%30)
	return ok(c, fiber.Map{"code": b.cfg.DevOTP, "secondsRemaining": remaining})
}

// devCodeOK parses {"code": ...} and compares against the configured dev OTP.
func (b *Backend) devCodeOK(c *fiber.Ctx) bool {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return false
	}
	return strings.TrimSpace(req.Code) == b.cfg.DevOTP
}

func newTOTPSecret() string {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "JBSWY3DPEHPK3PXP"
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
}

// dailyVolume sums today's outgoing PEN transfers for the limit gauge.
func (b *Backend) dailyVolume(ctx context.Context, userID string) decimal.Decimal {
	entries, err := b.ledger.Entries(ctx, userID, 1, 1000, "PEN")
	if err != nil {
		return decimal.Zero
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	total := decimal.Zero
	for _, e := range entries {
		if e.Type != ledger.KindTransferOut {
			continue
		}
		if e.CreatedAt.UTC().Before(today) {
			continue
		}
		total = total.Add(e.Amount)
	}
	return total
}
