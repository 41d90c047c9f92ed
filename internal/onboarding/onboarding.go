// Package onboarding drives account registration: starting a session,
// verifying the email and phone codes, and completing KYC against the
// national registry.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
	"github.com/enone-pay/enone/internal/validate"
)

// ResendCooldown is the wait imposed between code resends per channel.
const ResendCooldown = 60 * time.Second

// Resend channels.
const (
	ChannelEmail = "email"
	ChannelPhone = "phone"
)

// ErrNoSession reports a verification attempt without a known onboarding
// session.
var ErrNoSession = errors.New("sesión de registro no encontrada")

// Service drives the onboarding flow.
type Service struct {
	client   *api.Client
	store    *session.Store
	notifier notification.Notifier
	logger   *slog.Logger
	cooldown *Cooldown
}

// NewService constructs the onboarding service.
func NewService(client *api.Client, store *session.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   logger,
		cooldown: NewCooldown(ResendCooldown),
	}
}

// Start registers the credentials and opens an onboarding session, storing
// its identifier in every slot a later page might read it from.
func (s *Service) Start(ctx context.Context, email, phone, password string) (string, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if !validate.Email(email) {
		return "", fmt.Errorf("correo electrónico inválido")
	}
	if !validate.PhoneE164(phone) {
		return "", fmt.Errorf("teléfono inválido, usa formato +E164")
	}
	if !validate.Password(password) {
		return "", fmt.Errorf("la contraseña debe tener al menos 8 caracteres")
	}

	var out struct {
		ID string `json:"id"`
	}
	err := s.client.CallData(ctx, "/api/onboarding/start", api.CallOptions{
		Body: map[string]string{"email": email, "phone": phone, "password": password},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("no se recibió un ID de sesión válido del servidor")
	}
	if err := s.store.SetSessionID(ctx, out.ID); err != nil {
		return "", fmt.Errorf("store session id: %w", err)
	}
	return out.ID, nil
}

// SessionID resolves the onboarding session from its storage slots, in
// order: the primary slot, the caller-supplied fallback (a URL parameter on
// the original pages), then the secondary slot. A fallback hit is written
// back to the primary slot.
func (s *Service) SessionID(ctx context.Context, fallback string) (string, error) {
	id, ok, err := s.store.SessionID(ctx)
	if err != nil {
		return "", err
	}
	if ok && usable(id) {
		return id, nil
	}
	if usable(fallback) {
		if err := s.store.SetSessionID(ctx, fallback); err != nil {
			return "", err
		}
		return fallback, nil
	}
	id, ok, err = s.store.OnboardingSessionID(ctx)
	if err != nil {
		return "", err
	}
	if ok && usable(id) {
		return id, nil
	}
	return "", ErrNoSession
}

// usable rejects the literal junk values older pages persisted.
func usable(id string) bool {
	return id != "" && id != "null" && id != "undefined"
}

// ResendEmail asks for a fresh email code, subject to the cooldown.
func (s *Service) ResendEmail(ctx context.Context, fallback string) error {
	return s.resend(ctx, ChannelEmail, "/api/onboarding/resend-email", fallback)
}

// ResendPhone asks for a fresh SMS code, subject to the cooldown.
func (s *Service) ResendPhone(ctx context.Context, fallback string) error {
	return s.resend(ctx, ChannelPhone, "/api/onboarding/resend-phone", fallback)
}

func (s *Service) resend(ctx context.Context, channel, path, fallback string) error {
	if rem := s.cooldown.Remaining(channel); rem > 0 {
		return fmt.Errorf("espera %d segundos antes de reenviar", int(rem.Seconds())+1)
	}
	sid, err := s.SessionID(ctx, fallback)
	if err != nil {
		return err
	}
	_, err = s.client.Call(ctx, path, api.CallOptions{Body: map[string]string{"sessionId": sid}})
	if err != nil {
		return err
	}
	s.cooldown.Start(channel)
	return nil
}

// VerifyEmailCode confirms the code sent to the registered email.
func (s *Service) VerifyEmailCode(ctx context.Context, fallback, code string) error {
	return s.verify(ctx, "/api/onboarding/verify-email-code", fallback, code)
}

// VerifyPhone confirms the code sent by SMS.
func (s *Service) VerifyPhone(ctx context.Context, fallback, code string) error {
	return s.verify(ctx, "/api/onboarding/verify-phone", fallback, code)
}

func (s *Service) verify(ctx context.Context, path, fallback, code string) error {
	cleaned := validate.Digits(code)
	if !validate.Code6(cleaned) {
		return fmt.Errorf("el código debe tener 6 dígitos")
	}
	sid, err := s.SessionID(ctx, fallback)
	if err != nil {
		return err
	}
	_, err = s.client.Call(ctx, path, api.CallOptions{
		Body: map[string]string{"sessionId": sid, "code": cleaned},
	})
	return err
}

// CompleteRequest carries the identity document details for KYC.
type CompleteRequest struct {
	DocumentNumber string
	FirstName      string
	LastName       string
	Gender         string
}

// FriendlyError wraps a KYC rejection with the copy shown to the user.
type FriendlyError struct {
	Title   string
	Message string
	Level   string
	cause   error
}

func (e *FriendlyError) Error() string { return e.Message }
func (e *FriendlyError) Unwrap() error { return e.cause }

// Complete submits the identity document, finishing registration. A
// rejection comes back as a *FriendlyError keyed off the backend's error
// code, with the legacy message substrings as fallback.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) error {
	doc := validate.Digits(req.DocumentNumber)
	if !validate.DNI(doc) {
		return &FriendlyError{
			Title:   "DNI inválido",
			Message: "El DNI debe tener exactamente 8 dígitos",
			Level:   notification.LevelWarning,
		}
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return &FriendlyError{
			Title:   "Campos incompletos",
			Message: "Por favor completa todos los campos obligatorios",
			Level:   notification.LevelWarning,
		}
	}
	sid, err := s.SessionID(ctx, "")
	if err != nil {
		return err
	}

	body := map[string]any{
		"sessionId":      sid,
		"documentType":   "DNI",
		"documentNumber": doc,
		"firstName":      firstName,
		"lastName":       lastName,
	}
	if req.Gender != "" {
		body["gender"] = req.Gender
	} else {
		body["gender"] = nil
	}

	if _, err := s.client.Call(ctx, "/api/onboarding/complete", api.CallOptions{Body: body}); err != nil {
		return friendlyKYCError(err)
	}

	if err := s.store.ClearSessionID(ctx); err != nil && s.logger != nil {
		s.logger.Error("clear onboarding session", "error", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(notification.Notice{
			Level: notification.LevelSuccess,
			Title: "¡Registro completado!",
			Text:  "Tu cuenta ha sido creada exitosamente. Ahora puedes iniciar sesión.",
		})
	}
	return nil
}

func friendlyKYCError(err error) error {
	msg := err.Error()
	code := api.CodeOf(err)

	switch {
	case code == api.CodeDNINotFound || strings.Contains(msg, "DNI no encontrado") || strings.Contains(msg, "RENIEC"):
		return &FriendlyError{
			Title:   "DNI no encontrado",
			Message: "Los datos ingresados no coinciden con los registros de RENIEC. Verifica que tu DNI, nombres y apellidos sean correctos.",
			Level:   notification.LevelWarning,
			cause:   err,
		}
	case code == api.CodeKYCNameMismatch || strings.Contains(msg, "no coinciden"):
		return &FriendlyError{
			Title:   "Datos incorrectos",
			Message: "Los nombres o apellidos no coinciden con los datos registrados en RENIEC. Verifica que estén escritos exactamente como aparecen en tu DNI.",
			Level:   notification.LevelWarning,
			cause:   err,
		}
	case code == api.CodeUnderage || strings.Contains(msg, "18 años") || strings.Contains(msg, "menor"):
		return &FriendlyError{
			Title:   "Edad no permitida",
			Message: "Debes ser mayor de 18 años para registrarte en la plataforma.",
			Level:   notification.LevelInfo,
			cause:   err,
		}
	case code == api.CodeDocumentTaken || strings.Contains(msg, "ya está registrado") || strings.Contains(msg, "ya usado"):
		return &FriendlyError{
			Title:   "DNI ya registrado",
			Message: "Este DNI ya está registrado en el sistema. Si ya tienes una cuenta, intenta iniciar sesión.",
			Level:   notification.LevelInfo,
			cause:   err,
		}
	case code == api.CodeSessionExpired || strings.Contains(msg, "Sesión expirada"):
		return &FriendlyError{
			Title:   "Sesión expirada",
			Message: "Tu sesión ha expirado. Por favor, inicia el proceso de registro nuevamente.",
			Level:   notification.LevelWarning,
			cause:   err,
		}
	}
	return err
}
