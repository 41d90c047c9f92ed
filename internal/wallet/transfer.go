package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
	"github.com/enone-pay/enone/internal/validate"
	"github.com/enone-pay/enone/internal/wizard"
)

// PendingTransfer is the hand-off written by the transfer form and read by
// the confirmation page.
type PendingTransfer struct {
	RecipientID         string          `json:"recipientId"`
	RecipientName       string          `json:"recipientName"`
	RecipientEmail      string          `json:"recipientEmail"`
	RecipientIdentifier string          `json:"recipientIdentifier"`
	Currency            string          `json:"currency"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	Timestamp           int64           `json:"timestamp"`
}

// StageTransfer validates the form against the cached balance, writes the
// hand-off, and navigates to the confirmation page. The recipient must have
// been validated already.
func (s *Service) StageTransfer(ctx context.Context, recipient *Recipient, identifier, currency string, amount decimal.Decimal, description string) error {
	if recipient == nil {
		return fmt.Errorf("por favor, ingresa un destinatario válido")
	}
	identifier = strings.TrimSpace(identifier)
	description = strings.TrimSpace(description)
	if identifier == "" || currency == "" || description == "" {
		return fmt.Errorf("por favor, completa todos los campos")
	}
	if !amount.IsPositive() {
		return fmt.Errorf("el monto debe ser mayor a 0")
	}
	if w, ok := s.Balance(currency); ok && amount.GreaterThan(w.Balance) {
		return fmt.Errorf("saldo insuficiente. Disponible: %s %s", currency, w.Balance.StringFixed(2))
	}

	pending := PendingTransfer{
		RecipientID:         recipient.ID,
		RecipientName:       recipient.DisplayName(),
		RecipientEmail:      recipient.Email,
		RecipientIdentifier: identifier,
		Currency:            currency,
		Amount:              amount,
		Description:         description,
		Timestamp:           time.Now().UnixMilli(),
	}
	if err := s.store.SaveHandoff(ctx, session.HandoffPendingTransfer, pending); err != nil {
		return fmt.Errorf("stage transfer: %w", err)
	}
	if s.nav != nil {
		s.nav.GoTo(notification.PageConfirmTransfer)
	}
	return nil
}

// PendingTransfer reads the staged hand-off without consuming it. When none
// exists the caller belongs back on the wallet page.
func (s *Service) PendingTransfer(ctx context.Context) (PendingTransfer, bool, error) {
	var pending PendingTransfer
	ok, err := s.store.PeekHandoff(ctx, session.HandoffPendingTransfer, &pending)
	if err != nil || !ok {
		if s.nav != nil && err == nil {
			s.nav.GoTo(notification.PageWallet)
		}
		return PendingTransfer{}, false, err
	}
	return pending, true, nil
}

// TransferConfirmWizard builds the single-step confirmation flow for a
// staged transfer. When the profile has the second factor enabled the step
// demands a six digit code; otherwise it submits with none. Success consumes
// the hand-off, stores the voucher, and navigates to the receipt page.
func (s *Service) TransferConfirmWizard(pending PendingTransfer, twoFactorEnabled bool) *wizard.Wizard {
	return wizard.New(wizard.Definition{
		Name: "transfer-confirm",
		Steps: []wizard.Step{
			{
				Name:   "confirm",
				Fields: []string{"token2fa"},
				Validate: func(f map[string]string) error {
					if twoFactorEnabled && !validate.Code6(validate.Digits(f["token2fa"])) {
						return fmt.Errorf("por favor, ingresa el código 2FA de 6 dígitos")
					}
					return nil
				},
				Call: func(ctx context.Context, f map[string]string) error {
					body := map[string]any{
						"toUsername":  pending.RecipientIdentifier,
						"amount":      json.Number(pending.Amount.String()),
						"description": pending.Description,
						"currency":    pending.Currency,
						"token2fa":    nil,
					}
					if twoFactorEnabled {
						body["token2fa"] = validate.Digits(f["token2fa"])
					}
					env, err := s.client.Call(ctx, "/api/wallet/transfer", api.CallOptions{
						Auth: true, Body: body, Idempotent: true,
					})
					if err != nil {
						return err
					}

					if err := s.store.ClearHandoff(ctx, session.HandoffPendingTransfer); err != nil {
						return fmt.Errorf("clear pending transfer: %w", err)
					}
					var voucher json.RawMessage = env.Data
					if err := s.store.SaveHandoff(ctx, session.HandoffVoucher, voucher); err != nil {
						return fmt.Errorf("store voucher: %w", err)
					}
					s.invalidate()
					return nil
				},
			},
		},
		OnDone: func(context.Context, map[string]string) {
			if s.notifier != nil {
				s.notifier.Notify(notification.Notice{
					Level: notification.LevelSuccess,
					Title: "¡Transferencia realizada!",
					Text:  "Tu comprobante está listo",
				})
			}
			if s.nav != nil {
				s.nav.GoTo(notification.PageVoucher)
			}
		},
	}, s.logger)
}

// Voucher consumes the receipt hand-off left by a completed transfer.
func (s *Service) Voucher(ctx context.Context) (Transaction, bool, error) {
	var raw json.RawMessage
	ok, err := s.store.TakeHandoff(ctx, session.HandoffVoucher, &raw)
	if err != nil || !ok {
		return Transaction{}, false, err
	}
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return Transaction{}, false, fmt.Errorf("decode voucher: %w", err)
	}
	return tx, true, nil
}
