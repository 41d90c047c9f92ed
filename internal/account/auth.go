package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/token"
	"github.com/enone-pay/enone/internal/validate"
)

// ErrBadCredentials reports a rejected login.
var ErrBadCredentials = errors.New("usuario o contraseña incorrectos")

// Login authenticates, stores the token, and returns the page the user
// should land on.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("completa todos los campos")
	}
	if !validate.Email(username) {
		return "", fmt.Errorf("correo electrónico inválido")
	}

	var out struct {
		Token string `json:"token"`
	}
	err := s.client.CallData(ctx, "/api/auth/login", api.CallOptions{
		Body: map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		status := api.StatusOf(err)
		if status == 401 || status == 403 || api.CodeOf(err) == api.CodeBadCredentials {
			return "", ErrBadCredentials
		}
		return "", err
	}
	if out.Token == "" {
		return "", ErrBadCredentials
	}

	if err := s.store.SetToken(ctx, out.Token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	s.dropCached()
	return RouteForToken(out.Token), nil
}

// RouteForToken picks the landing page for a token's roles.
func RouteForToken(tok string) string {
	claims, err := token.Decode(tok)
	if err != nil {
		return notification.PageWallet
	}
	if token.IsAdmin(claims.Roles()) {
		return notification.PageAdminDashboard
	}
	return notification.PageWallet
}

// CheckExistingSession reports where a stored, unexpired token should send
// the user. An absent or expired token falls through to the login form.
func (s *Service) CheckExistingSession(ctx context.Context) (string, bool) {
	tok, ok, err := s.store.Token(ctx)
	if err != nil || !ok || token.IsExpired(tok, time.Now()) {
		return "", false
	}
	return RouteForToken(tok), true
}

// Logout clears the stored session and sends the user to login.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.ClearToken(ctx); err != nil {
		return err
	}
	s.dropCached()
	if s.nav != nil {
		s.nav.GoTo(notification.PageLogin)
	}
	return nil
}
