package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/validate"
)

const limitCooldown = 24 * time.Hour

var (
	limitFloor   = decimal.NewFromInt(500)
	limitCeiling = decimal.NewFromInt(2000)
)

// requirePassword parses {"password": ...} and checks it against the caller.
func (b *Backend) requirePassword(c *fiber.Ctx, u *User) bool {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return false
	}
	return b.users.CheckPassword(u.ID, req.Password)
}

func (b *Backend) handleChangeEmailRequest(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.requirePassword(c, u) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Contraseña incorrecta")
	}
	b.users.ClearPending(u.ID)
	b.logger.Info("sms verification code issued", "user", u.ID, "phone", u.Phone)
	return ok(c, fiber.Map{"sentTo": u.Phone})
}

// handleVerifyDevCode backs the intermediate verify steps of both the
// change-email and change-phone flows.
func (b *Backend) handleVerifyDevCode(c *fiber.Ctx) error {
	if _, err := b.userFrom(c); err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	return ok(c, nil)
}

func (b *Backend) handleSendNewEmail(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		NewEmail string `json:"newEmail"`
	}
	if err := c.BodyParser(&req); err != nil || !validate.Email(req.NewEmail) {
		return fail(c, http.StatusBadRequest, "", "correo inválido")
	}
	if existing, err := b.users.Lookup(req.NewEmail); err == nil && existing.ID != u.ID {
		return fail(c, http.StatusConflict, "DUPLICATE_EMAIL", "El correo ya está registrado")
	}
	b.users.SetPending(u.ID, func(p *pendingChange) {
		p.NewEmail = strings.ToLower(strings.TrimSpace(req.NewEmail))
	})
	return ok(c, fiber.Map{"sentTo": req.NewEmail})
}

func (b *Backend) handleConfirmNewEmail(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	pending, okPending := b.users.Pending(u.ID)
	if !okPending || pending.NewEmail == "" {
		return fail(c, http.StatusBadRequest, "", "no hay cambio de correo pendiente")
	}
	if err := b.users.Update(u.ID, func(u *User) { u.Email = pending.NewEmail }); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo actualizar el correo")
	}
	b.users.ClearPending(u.ID)
	return ok(c, fiber.Map{"email": pending.NewEmail})
}

func (b *Backend) handleChangePhoneRequest(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.requirePassword(c, u) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Contraseña incorrecta")
	}
	b.users.ClearPending(u.ID)
	b.logger.Info("email verification code issued", "user", u.ID, "email", u.Email)
	return ok(c, fiber.Map{"sentTo": u.Email})
}

func (b *Backend) handleSendNewPhone(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		NewPhone string `json:"newPhone"`
	}
	if err := c.BodyParser(&req); err != nil || !validate.PhoneE164(req.NewPhone) {
		return fail(c, http.StatusBadRequest, "", "teléfono inválido")
	}
	b.users.SetPending(u.ID, func(p *pendingChange) {
		p.NewPhone = strings.TrimSpace(req.NewPhone)
	})
	return ok(c, fiber.Map{"sentTo": req.NewPhone})
}

func (b *Backend) handleConfirmNewPhone(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	pending, okPending := b.users.Pending(u.ID)
	if !okPending || pending.NewPhone == "" {
		return fail(c, http.StatusBadRequest, "", "no hay cambio de teléfono pendiente")
	}
	if err := b.users.Update(u.ID, func(u *User) { u.Phone = pending.NewPhone }); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo actualizar el teléfono")
	}
	b.users.ClearPending(u.ID)
	return ok(c, fiber.Map{"phone": pending.NewPhone})
}

func (b *Backend) handleChangeLimitRequest(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if since := time.Since(u.LastLimitChange); !u.LastLimitChange.IsZero() && since < limitCooldown {
		return fail(c, http.StatusTooManyRequests, "LIMIT_CHANGE_COOLDOWN",
			"Debes esperar 24 horas entre cambios de límite. Intenta nuevamente más tarde.")
	}
	var req struct {
		NewLimit decimal.Decimal `json:"newLimit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	if req.NewLimit.LessThan(limitFloor) || req.NewLimit.GreaterThan(limitCeiling) {
		return fail(c, http.StatusBadRequest, "", "el límite debe estar entre S/ 500.00 y S/ 2,000.00")
	}
	b.users.SetPending(u.ID, func(p *pendingChange) { p.NewLimit = req.NewLimit })
	b.logger.Info("limit change code issued", "user", u.ID, "newLimit", req.NewLimit.String())
	return ok(c, fiber.Map{"sentTo": u.Phone})
}

func (b *Backend) handleChangeLimitConfirm(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.devCodeOK(c) {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	pending, okPending := b.users.Pending(u.ID)
	if !okPending || pending.NewLimit.IsZero() {
		return fail(c, http.StatusBadRequest, "", "no hay cambio de límite pendiente")
	}
	if err := b.users.Update(u.ID, func(u *User) {
		u.DailyLimit = pending.NewLimit
		u.LastLimitChange = time.Now()
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo actualizar el límite")
	}
	b.users.ClearPending(u.ID)
	return ok(c, fiber.Map{"dailyTransactionLimit": pending.NewLimit})
}

func (b *Backend) handleRequestDeletionCode(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !b.requirePassword(c, u) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Contraseña incorrecta")
	}
	b.logger.Info("deletion code issued", "user", u.ID)
	return ok(c, fiber.Map{"sentTo": u.Phone})
}

func (b *Backend) handleDeleteAccount(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	if !b.users.CheckPassword(u.ID, req.Password) {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "Contraseña incorrecta")
	}
	if strings.TrimSpace(req.Code) != b.cfg.DevOTP {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	if err := b.users.Delete(u.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo eliminar la cuenta")
	}
	b.logger.Info("account deleted", "user", u.ID)
	return ok(c, nil)
}
