package backend

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/ledger"
	"github.com/enone-pay/enone/internal/validate"
)

// Fixed dev rates; the real platform quotes these from treasury.
var (
	ratePENToUSD = decimal.RequireFromString("0.27")
	rateUSDToPEN = decimal.RequireFromString("3.70")
)

func exchangeRate(from, to string) (decimal.Decimal, bool) {
	switch {
	case from == "PEN" && to == "USD":
		return ratePENToUSD, true
	case from == "USD" && to == "PEN":
		return rateUSDToPEN, true
	default:
		return decimal.Zero, false
	}
}

func (b *Backend) handleWallets(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	wallets, err := b.ledger.Wallets(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudieron cargar las billeteras")
	}
	return ok(c, fiber.Map{"wallets": wallets})
}

func (b *Backend) handleTransactions(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	currency := c.Query("currency")
	entries, err := b.ledger.Entries(c.UserContext(), u.ID, page, limit, currency)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo cargar el historial")
	}
	return ok(c, fiber.Map{"transactions": entries})
}

func (b *Backend) handleExchangeRate(c *fiber.Ctx) error {
	from := strings.ToUpper(c.Query("from", "PEN"))
	to := strings.ToUpper(c.Query("to", "USD"))
	rate, okRate := exchangeRate(from, to)
	if !okRate {
		return fail(c, http.StatusBadRequest, "", "tipo de cambio no disponible")
	}
	return ok(c, fiber.Map{"rate": rate, "from": from, "to": to})
}

func (b *Backend) handleValidateRecipient(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	query := strings.TrimSpace(c.Query("id"))
	if query == "" {
		return fail(c, http.StatusBadRequest, "", "indica un destinatario")
	}
	recipient, err := b.users.MatchRecipient(query, u.ID)
	if err != nil {
		return fail(c, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Usuario no encontrado")
	}
	return ok(c, fiber.Map{
		"id":        recipient.ID,
		"firstName": recipient.FirstName,
		"lastName":  recipient.LastName,
		"email":     recipient.Email,
	})
}

type movementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (b *Backend) handleDeposit(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if !u.CardActive {
		return fail(c, http.StatusBadRequest, "CARD_NOT_ACTIVE", "Activa una tarjeta para depositar")
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil || !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "", "el monto debe ser mayor a 0")
	}
	entry, err := b.ledger.Deposit(c.UserContext(), u.ID, "PEN", uuid.NewString(), req.Amount, req.Description)
	if err != nil {
		return fail(c, http.StatusBadRequest, "", "no se pudo procesar el depósito")
	}
	return ok(c, entry)
}

func (b *Backend) handleWithdraw(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil || !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "", "el monto debe ser mayor a 0")
	}
	entry, err := b.ledger.Withdraw(c.UserContext(), u.ID, "PEN", uuid.NewString(), req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrNoWallet) {
			return fail(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Saldo insuficiente")
		}
		return fail(c, http.StatusBadRequest, "", "no se pudo procesar el retiro")
	}
	return ok(c, entry)
}

func (b *Backend) handleConvert(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		FromCurrency string          `json:"fromCurrency"`
		ToCurrency   string          `json:"toCurrency"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil || !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "", "el monto debe ser mayor a 0")
	}
	from := strings.ToUpper(req.FromCurrency)
	to := strings.ToUpper(req.ToCurrency)
	rate, okRate := exchangeRate(from, to)
	if !okRate {
		return fail(c, http.StatusBadRequest, "", "tipo de cambio no disponible")
	}
	entry, err := b.ledger.Convert(c.UserContext(), u.ID, from, to, uuid.NewString(), req.Amount, rate, req.Description)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrNoWallet) {
			return fail(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Saldo insuficiente")
		}
		return fail(c, http.StatusBadRequest, "", "no se pudo procesar la conversión")
	}
	return ok(c, entry)
}

func (b *Backend) handleTransfer(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		ToUsername  string          `json:"toUsername"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Currency    string          `json:"currency"`
		Token2FA    *string         `json:"token2fa"`
	}
	if err := c.BodyParser(&req); err != nil || !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "", "el monto debe ser mayor a 0")
	}

	if u.TwoFactorEnabled {
		if req.Token2FA == nil || strings.TrimSpace(*req.Token2FA) == "" {
			return fail(c, http.StatusBadRequest, "TWO_FACTOR_REQUIRED", "Ingresa tu código de verificación")
		}
		if strings.TrimSpace(*req.Token2FA) != b.cfg.DevOTP {
			return fail(c, http.StatusBadRequest, "INVALID_CODE", "Código incorrecto")
		}
	}

	recipient, err := b.users.MatchRecipient(req.ToUsername, u.ID)
	if err != nil {
		return fail(c, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Usuario no encontrado")
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "PEN"
	}
	if currency == "PEN" {
		volume := b.dailyVolume(c.UserContext(), u.ID)
		if volume.Add(req.Amount).GreaterThan(u.DailyLimit) {
			return fail(c, http.StatusBadRequest, "DAILY_LIMIT_EXCEEDED", "Has superado tu límite diario de transferencias")
		}
	}

	entry, err := b.ledger.Transfer(c.UserContext(), u.ID, u.FullName(), recipient.ID, recipient.FullName(), currency, uuid.NewString(), req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrNoWallet) {
			return fail(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Saldo insuficiente")
		}
		return fail(c, http.StatusBadRequest, "", "no se pudo procesar la transferencia")
	}
	return ok(c, entry)
}

func (b *Backend) handleCardStatus(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	return ok(c, fiber.Map{
		"hasActiveCard": u.CardActive,
		"maskedNumber":  u.CardMasked,
		"holderName":    u.CardHolder,
	})
}

func (b *Backend) handleActivateCard(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	var req struct {
		Number string `json:"numeroTarjeta"`
		CVV    string `json:"cvv"`
		Expiry string `json:"fechaVencimiento"`
		Holder string `json:"nombreTitular"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, "", "cuerpo inválido")
	}
	number := validate.Digits(req.Number)
	if len(number) != 16 || !validate.CardExpiry(req.Expiry) || strings.TrimSpace(req.Holder) == "" {
		return fail(c, http.StatusBadRequest, "", "datos de tarjeta inválidos")
	}
	masked := "**** **** **** " + number[len(number)-4:]
	holder := strings.ToUpper(strings.TrimSpace(req.Holder))
	if err := b.users.Update(u.ID, func(u *User) {
		u.CardActive = true
		u.CardMasked = masked
		u.CardHolder = holder
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo activar la tarjeta")
	}
	return ok(c, fiber.Map{"numeroTarjetaEnmascarado": masked})
}

func (b *Backend) handleDeactivateCard(c *fiber.Ctx) error {
	u, err := b.userFrom(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Sesión expirada")
	}
	if err := b.users.Update(u.ID, func(u *User) {
		u.CardActive = false
		u.CardMasked = ""
		u.CardHolder = ""
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "", "no se pudo desactivar la tarjeta")
	}
	return ok(c, nil)
}
