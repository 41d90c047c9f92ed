package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/validate"
	"github.com/enone-pay/enone/internal/wizard"
)

// DeleteConfirmPhrase must be typed verbatim before account deletion can
// proceed.
const DeleteConfirmPhrase = "ELIMINAR"

// Limit bounds in PEN for the change-limit flow; both ends inclusive.
var (
	limitMin = decimal.NewFromInt(500)
	limitMax = decimal.NewFromInt(2000)
)

func requireCode(field string) func(map[string]string) error {
	return func(f map[string]string) error {
		if !validate.Code6(validate.Digits(f[field])) {
			return fmt.Errorf("ingresa un código de 6 dígitos")
		}
		return nil
	}
}

func requirePassword(f map[string]string) error {
	if f["password"] == "" {
		return fmt.Errorf("ingresa tu contraseña actual")
	}
	return nil
}

// ChangeEmailWizard builds the four-step email change flow: password, SMS
// code to the current phone, the new address, then a code sent to it.
func (s *Service) ChangeEmailWizard() *wizard.Wizard {
	return wizard.New(wizard.Definition{
		Name: "change-email",
		Steps: []wizard.Step{
			{
				Name:     "password",
				Fields:   []string{"password"},
				Validate: requirePassword,
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-email/request", api.CallOptions{
						Auth: true, Body: map[string]string{"password": f["password"]},
					})
					return err
				},
				OnSuccess: func(map[string]string) {
					if p, ok := s.Cached(); ok {
						s.notify(notification.LevelInfo, "Código enviado", "Revisa el SMS enviado a "+MaskPhone(p.Phone))
					}
				},
			},
			{
				Name:     "sms-code",
				Fields:   []string{"smsCode"},
				Validate: requireCode("smsCode"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-email/verify-phone", api.CallOptions{
						Auth: true, Body: map[string]string{"code": validate.Digits(f["smsCode"])},
					})
					return err
				},
			},
			{
				Name:   "new-email",
				Fields: []string{"newEmail"},
				Validate: func(f map[string]string) error {
					if !validate.Email(f["newEmail"]) {
						return fmt.Errorf("correo electrónico inválido")
					}
					return nil
				},
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-email/send-new-email", api.CallOptions{
						Auth: true, Body: map[string]string{"newEmail": f["newEmail"]},
					})
					return err
				},
				OnSuccess: func(f map[string]string) {
					s.notify(notification.LevelInfo, "Código enviado", "Revisa "+MaskEmail(f["newEmail"]))
				},
			},
			{
				Name:     "confirm-code",
				Fields:   []string{"finalCode"},
				Validate: requireCode("finalCode"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-email/confirm-new-email", api.CallOptions{
						Auth: true, Body: map[string]string{"code": validate.Digits(f["finalCode"])},
					})
					return err
				},
			},
		},
		OnDone: func(_ context.Context, f map[string]string) {
			newEmail := f["newEmail"]
			s.updateCached(func(p *Profile) { p.Email = newEmail })
			s.notify(notification.LevelSuccess, "Correo actualizado", "Tu correo ahora es "+newEmail)
		},
	}, s.logger)
}

// ChangePhoneWizard builds the four-step phone change flow: password, a
// code to the current email, the new number, then an SMS code sent to it.
func (s *Service) ChangePhoneWizard() *wizard.Wizard {
	return wizard.New(wizard.Definition{
		Name: "change-phone",
		Steps: []wizard.Step{
			{
				Name:     "password",
				Fields:   []string{"password"},
				Validate: requirePassword,
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-phone/request", api.CallOptions{
						Auth: true, Body: map[string]string{"password": f["password"]},
					})
					return err
				},
				OnSuccess: func(map[string]string) {
					if p, ok := s.Cached(); ok {
						s.notify(notification.LevelInfo, "Código enviado", "Revisa "+MaskEmail(p.Email))
					}
				},
			},
			{
				Name:     "email-code",
				Fields:   []string{"emailCode"},
				Validate: requireCode("emailCode"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-phone/verify-email", api.CallOptions{
						Auth: true, Body: map[string]string{"code": validate.Digits(f["emailCode"])},
					})
					return err
				},
			},
			{
				Name:   "new-phone",
				Fields: []string{"newPhone"},
				Validate: func(f map[string]string) error {
					if !validate.PhoneE164(f["newPhone"]) {
						return fmt.Errorf("número de teléfono inválido, usa formato +51...")
					}
					return nil
				},
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-phone/send-new-phone", api.CallOptions{
						Auth: true, Body: map[string]string{"newPhone": f["newPhone"]},
					})
					return err
				},
				OnSuccess: func(f map[string]string) {
					s.notify(notification.LevelInfo, "Código enviado", "Revisa el SMS enviado a "+MaskPhone(f["newPhone"]))
				},
			},
			{
				Name:     "confirm-code",
				Fields:   []string{"finalCode"},
				Validate: requireCode("finalCode"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-phone/confirm-new-phone", api.CallOptions{
						Auth: true, Body: map[string]string{"code": validate.Digits(f["finalCode"])},
					})
					return err
				},
			},
		},
		OnDone: func(_ context.Context, f map[string]string) {
			newPhone := f["newPhone"]
			s.updateCached(func(p *Profile) { p.Phone = newPhone })
			s.notify(notification.LevelSuccess, "Teléfono actualizado", "Tu teléfono ahora es "+newPhone)
		},
	}, s.logger)
}

// ValidateLimit applies the local bounds before any request is issued.
func ValidateLimit(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("ingresa un monto válido para el límite")
	}
	if amount.LessThan(limitMin) {
		return decimal.Zero, fmt.Errorf("el límite mínimo es de S/ 500.00")
	}
	if amount.GreaterThan(limitMax) {
		return decimal.Zero, fmt.Errorf("el límite máximo es de S/ 2,000.00")
	}
	return amount, nil
}

// ChangeLimitWizard builds the two-step limit change flow: the new amount,
// then the SMS confirmation code. A backend cooldown rejection surfaces as
// a distinguished "must wait" notice.
func (s *Service) ChangeLimitWizard() *wizard.Wizard {
	return wizard.New(wizard.Definition{
		Name: "change-limit",
		Steps: []wizard.Step{
			{
				Name:   "amount",
				Fields: []string{"newLimit"},
				Validate: func(f map[string]string) error {
					_, err := ValidateLimit(f["newLimit"])
					return err
				},
				Call: func(ctx context.Context, f map[string]string) error {
					amount, err := ValidateLimit(f["newLimit"])
					if err != nil {
						return err
					}
					_, err = s.client.Call(ctx, "/api/auth/change-limit/request", api.CallOptions{
						Auth: true, Body: map[string]any{"newLimit": json.Number(amount.String())},
					})
					if err != nil {
						if api.CodeOf(err) == api.CodeLimitCooldown || strings.Contains(err.Error(), "24 horas") {
							s.notify(notification.LevelWarning, "Debes esperar 24 horas",
								strings.TrimPrefix(err.Error(), "Debes esperar 24 horas entre cambios de límite. "))
						}
						return err
					}
					return nil
				},
				OnSuccess: func(map[string]string) {
					if p, ok := s.Cached(); ok {
						s.notify(notification.LevelInfo, "Código enviado", "Revisa el SMS enviado a "+MaskPhone(p.Phone))
					}
				},
			},
			{
				Name:     "sms-code",
				Fields:   []string{"smsCode"},
				Validate: requireCode("smsCode"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/change-limit/confirm", api.CallOptions{
						Auth: true, Body: map[string]string{"code": validate.Digits(f["smsCode"])},
					})
					return err
				},
			},
		},
		OnDone: func(ctx context.Context, _ map[string]string) {
			// Refetch so the cached limit matches what the backend applied.
			if p, err := s.Me(ctx, true); err == nil {
				s.notify(notification.LevelSuccess, "Límite actualizado",
					"Tu límite diario ahora es S/ "+p.DailyLimit.StringFixed(2))
			}
		},
	}, s.logger)
}

// DeleteAccountWizard builds the destructive flow: a typed confirmation
// phrase, the password that triggers the SMS code, and the final password
// plus code submission. Success clears the session and lands on login.
func (s *Service) DeleteAccountWizard() *wizard.Wizard {
	return wizard.New(wizard.Definition{
		Name: "delete-account",
		Steps: []wizard.Step{
			{
				Name:   "confirm-phrase",
				Fields: []string{"confirm"},
				Validate: func(f map[string]string) error {
					if f["confirm"] != DeleteConfirmPhrase {
						return fmt.Errorf("escribe %s para continuar", DeleteConfirmPhrase)
					}
					return nil
				},
			},
			{
				Name:     "request-code",
				Fields:   []string{"password"},
				Validate: requirePassword,
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/request-deletion-code", api.CallOptions{
						Auth: true, Body: map[string]string{"password": f["password"]},
					})
					return err
				},
				OnSuccess: func(map[string]string) {
					s.notify(notification.LevelInfo, "Código enviado", "Código SMS enviado a tu teléfono")
				},
			},
			{
				Name:     "confirm-delete",
				Fields:   []string{"code"},
				Validate: requireCode("code"),
				Call: func(ctx context.Context, f map[string]string) error {
					_, err := s.client.Call(ctx, "/api/auth/delete-account", api.CallOptions{
						Auth: true, Body: map[string]string{
							"password": f["password"],
							"code":     validate.Digits(f["code"]),
						},
					})
					return err
				},
			},
		},
		OnDone: func(ctx context.Context, _ map[string]string) {
			s.notify(notification.LevelSuccess, "Cuenta eliminada",
				"Tu cuenta ha sido eliminada permanentemente")
			if err := s.store.ClearToken(ctx); err != nil && s.logger != nil {
				s.logger.Error("clear token after deletion", "error", err)
			}
			s.dropCached()
			if s.nav != nil {
				s.nav.GoTo(notification.PageLogin)
			}
		},
	}, s.logger)
}
