package account

import (
	"context"
	"fmt"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/validate"
)

// TwoFactorStatus is the user's second-factor state.
type TwoFactorStatus struct {
	Enabled bool `json:"enabled"`
}

// TwoFactorSetup is a freshly generated pairing secret, valid for a short
// window.
type TwoFactorSetup struct {
	Secret    string `json:"secret"`
	ExpiresIn int    `json:"expiresIn"`
}

// TwoFactorCode is the current rotating code for an enabled second factor.
type TwoFactorCode struct {
	Code             string `json:"code"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// TwoFactorStatus fetches whether the second factor is enabled.
func (s *Service) TwoFactorStatus(ctx context.Context) (TwoFactorStatus, error) {
	var st TwoFactorStatus
	if err := s.client.CallData(ctx, "/api/auth/2fa/status", api.CallOptions{Auth: true}, &st); err != nil {
		return TwoFactorStatus{}, err
	}
	return st, nil
}

// GenerateTwoFactor requests a new pairing secret.
func (s *Service) GenerateTwoFactor(ctx context.Context) (TwoFactorSetup, error) {
	var setup TwoFactorSetup
	opts := api.CallOptions{Method: "POST", Auth: true}
	if err := s.client.CallData(ctx, "/api/auth/2fa/generate", opts, &setup); err != nil {
		return TwoFactorSetup{}, err
	}
	return setup, nil
}

// VerifyTwoFactor confirms the pairing code, enabling the second factor.
func (s *Service) VerifyTwoFactor(ctx context.Context, code string) error {
	if !validate.Code6(code) {
		return fmt.Errorf("ingresa un código de 6 dígitos")
	}
	opts := api.CallOptions{Auth: true, Body: map[string]string{"code": code}}
	if _, err := s.client.Call(ctx, "/api/auth/2fa/verify", opts); err != nil {
		return err
	}
	s.updateCached(func(p *Profile) { p.TwoFactorEnabled = true })
	return nil
}

// DisableTwoFactor turns the second factor off after code confirmation.
func (s *Service) DisableTwoFactor(ctx context.Context, code string) error {
	if !validate.Code6(code) {
		return fmt.Errorf("ingresa un código de 6 dígitos")
	}
	opts := api.CallOptions{Auth: true, Body: map[string]string{"code": code}}
	if _, err := s.client.Call(ctx, "/api/auth/2fa/disable", opts); err != nil {
		return err
	}
	s.updateCached(func(p *Profile) { p.TwoFactorEnabled = false })
	return nil
}

// CurrentTwoFactorCode fetches the rotating code for display.
func (s *Service) CurrentTwoFactorCode(ctx context.Context) (TwoFactorCode, error) {
	var code TwoFactorCode
	if err := s.client.CallData(ctx, "/api/auth/2fa/current-code", api.CallOptions{Auth: true}, &code); err != nil {
		return TwoFactorCode{}, err
	}
	return code, nil
}
