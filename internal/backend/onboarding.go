package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/enone-pay/enone/internal/validate"
)

const minSignupAge = 18

func (b *Backend) handleOnboardingStart(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	if !validate.Email(req.Email) || !validate.PhoneE164(req.Phone) || !validate.Password(req.Password) {
		return fail(c, http.StatusBadRequest, "", "datos de registro inválidos")
	}
	if _, err := b.users.Lookup(req.Email); err == nil {
		return fail(c, http.StatusConflict, "DUPLICATE_EMAIL", "El correo ya está registrado")
	}

	sess := b.signups.Start(req.Email, req.Phone, req.Password)
	b.logger.Info("onboarding started", "session", sess.ID, "email", sess.Email)
	return ok(c, fiber.Map{"id": sess.ID})
}

// sessionFrom resolves the signup session named in the request body. On
// failure the response has already been written and the returned session is
// nil.
func (b *Backend) sessionFrom(c *fiber.Ctx) (*signup, string, error) {
	var req struct {
		SessionID string `json:"sessionId"`
		Code      string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, "", fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	sess, okSess := b.signups.Get(strings.TrimSpace(req.SessionID))
	if !okSess {
		return nil, "", fail(c, http.StatusNotFound, "SESSION_EXPIRED", "Sesión expirada")
	}
	return sess, strings.TrimSpace(req.Code), nil
}

func (b *Backend) handleOnboardingResend(c *fiber.Ctx) error {
	sess, _, err := b.sessionFrom(c)
	if sess == nil {
		return err
	}
	channel := "email"
	if strings.HasSuffix(c.Path(), "resend-phone") {
		channel = "phone"
	}
	b.logger.Info("onboarding code resent", "session", sess.ID, "channel", channel)
	return ok(c, nil)
}

func (b *Backend) handleOnboardingVerifyEmail(c *fiber.Ctx) error {
	sess, code, err := b.sessionFrom(c)
	if sess == nil {
		return err
	}
	if code != b.cfg.DevOTP {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	b.signups.Update(sess.ID, func(s *signup) { s.EmailVerified = true })
	return ok(c, nil)
}

func (b *Backend) handleOnboardingVerifyPhone(c *fiber.Ctx) error {
	sess, code, err := b.sessionFrom(c)
	if sess == nil {
		return err
	}
	if code != b.cfg.DevOTP {
		return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
	}
	b.signups.Update(sess.ID, func(s *signup) { s.PhoneVerified = true })
	return ok(c, nil)
}

func (b *Backend) handleOnboardingComplete(c *fiber.Ctx) error {
	var req struct {
		SessionID      string `json:"sessionId"`
		DocumentType   string `json:"documentType"`
		DocumentNumber string `json:"documentNumber"`
		FirstName      string `json:"firstName"`
		LastName       string `json:"lastName"`
		Gender         string `json:"gender"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	sess, okSess := b.signups.Get(strings.TrimSpace(req.SessionID))
	if !okSess {
		return fail(c, http.StatusNotFound, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !sess.EmailVerified || !sess.PhoneVerified {
		return fail(c, http.StatusBadRequest, "", "verifica tu correo y teléfono antes de continuar")
	}
	if !validate.DNI(req.DocumentNumber) {
		return fail(c, http.StatusBadRequest, "DNI_NOT_FOUND", "No pudimos validar tu DNI con RENIEC")
	}

	person, found := b.registry.Find(req.DocumentNumber)
	if !found {
		return fail(c, http.StatusUnprocessableEntity, "DNI_NOT_FOUND", "No pudimos validar tu DNI con RENIEC")
	}
	if !person.NamesMatch(req.FirstName, req.LastName) {
		return fail(c, http.StatusUnprocessableEntity, "KYC_NAME_MISMATCH", "Los nombres no coinciden con el documento")
	}
	if person.Age(time.Now()) < minSignupAge {
		return fail(c, http.StatusUnprocessableEntity, "UNDERAGE", "Debes tener al menos 18 años para registrarte")
	}
	if _, err := b.users.ByDocument(req.DocumentNumber); err == nil {
		return fail(c, http.StatusConflict, "DOCUMENT_TAKEN", "El documento ya está registrado")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(sess.Password), bcrypt.MinCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo crear la cuenta")
	}
	u := &User{
		Username:       sess.Email,
		Email:          sess.Email,
		Phone:          sess.Phone,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		DocumentNumber: req.DocumentNumber,
		Roles:          []string{"USER"},
		DailyLimit:     decimal.NewFromInt(500),
	}
	if err := b.users.Create(u); err != nil {
		return fail(c, http.StatusConflict, "DUPLICATE_EMAIL", "El correo ya está registrado")
	}
	if _, err := b.ledger.EnsureWallet(c.UserContext(), u.ID, "PEN"); err != nil {
		b.logger.Error("ensure wallet", "user", u.ID, "error", err)
	}

	b.signups.Remove(sess.ID)
	b.logger.Info("onboarding completed", "user", u.ID)
	return ok(c, fiber.Map{"id": u.ID})
}
