// Package account covers the authenticated user's profile surface: login
// and session checks, the cached profile, two-factor management, and the
// guarded flows that change email, phone, transaction limit, or delete the
// account.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
)

// Profile is the authenticated user as /api/auth/me reports it.
type Profile struct {
	ID               string          `json:"id"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	DocumentNumber   string          `json:"documentNumber"`
	DailyLimit       decimal.Decimal `json:"dailyTransactionLimit"`
	DailyVolumePEN   decimal.Decimal `json:"totalDailyVolumeInPen"`
	TwoFactorEnabled bool            `json:"twoFactorEnabled"`
	CreatedAt        string          `json:"createdAt"`
}

// FullName joins the name fields, falling back to the email.
func (p Profile) FullName() string {
	if p.FirstName != "" && p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return p.Email
}

// RemainingLimit is the daily limit minus today's volume, floored at zero.
func (p Profile) RemainingLimit() decimal.Decimal {
	rem := p.DailyLimit.Sub(p.DailyVolumePEN)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

var (
	phoneMaskRe = regexp.MustCompile(`(\+\d{2})\d+(\d{3})`)
	emailMaskRe = regexp.MustCompile(`(.{2}).*(@.*)`)
)

// MaskPhone redacts the middle of a phone number, keeping the country code
// and the last three digits.
func MaskPhone(phone string) string {
	return phoneMaskRe.ReplaceAllString(phone, "$1...$2")
}

// MaskEmail redacts the local part of an email past its first two
// characters.
func MaskEmail(email string) string {
	return emailMaskRe.ReplaceAllString(email, "$1***$2")
}

// Service owns the profile cache and the account-level operations.
type Service struct {
	client   *api.Client
	store    *session.Store
	notifier notification.Notifier
	nav      notification.Navigator
	logger   *slog.Logger

	mu      sync.Mutex
	profile *Profile
}

// NewService constructs the account service.
func NewService(client *api.Client, store *session.Store, notifier notification.Notifier, nav notification.Navigator, logger *slog.Logger) *Service {
	return &Service{client: client, store: store, notifier: notifier, nav: nav, logger: logger}
}

// Me returns the cached profile, fetching it on first use or when refresh
// is set.
func (s *Service) Me(ctx context.Context, refresh bool) (Profile, error) {
	s.mu.Lock()
	if s.profile != nil && !refresh {
		p := *s.profile
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	var p Profile
	if err := s.client.CallData(ctx, "/api/auth/me", api.CallOptions{Auth: true}, &p); err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return p, nil
}

// Cached returns the profile without touching the network.
func (s *Service) Cached() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return Profile{}, false
	}
	return *s.profile, true
}

// updateCached applies fn to the cached profile when one exists.
func (s *Service) updateCached(fn func(*Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile != nil {
		fn(s.profile)
	}
}

func (s *Service) dropCached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
}

func (s *Service) notify(level, title, text string) {
	if s.notifier != nil {
		s.notifier.Notify(notification.Notice{Level: level, Title: title, Text: text})
	}
}
