// Package session wraps the persistent key-value storage holding the
// authentication token, the onboarding session identifier and the transient
// page hand-off slots. Storage carries no expiry of its own; the token's
// embedded expiry claim is the only expiry signal.
package session

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	keyToken             = "token"
	keySID               = "sid"
	keyOnboardingSession = "onboardingSessionId"
)

// Hand-off slots used to pass state between pages.
const (
	HandoffPendingTransfer = "pendingTransfer"
	HandoffVoucher         = "voucherData"
)

// Store is the session-state facade shared by the API client and the page
// controllers.
type Store struct {
	kv KV
}

// NewStore builds a session store over the provided KV backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Token returns the stored authentication token, if any.
func (s *Store) Token(ctx context.Context) (string, bool, error) {
	return s.kv.Get(ctx, keyToken)
}

// SetToken persists the authentication token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, keyToken, token)
}

// ClearToken removes the authentication token.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.kv.Delete(ctx, keyToken)
}

// SessionID returns the persisted onboarding session id (the "sid" slot).
func (s *Store) SessionID(ctx context.Context) (string, bool, error) {
	return s.kv.Get(ctx, keySID)
}

// SetSessionID persists the onboarding session id in both the durable slot
// and the session-scoped slot so a later page can recover it from either.
func (s *Store) SetSessionID(ctx context.Context, id string) error {
	if err := s.kv.Set(ctx, keySID, id); err != nil {
		return err
	}
	return s.kv.Set(ctx, keyOnboardingSession, id)
}

// ClearSessionID removes both onboarding session slots.
func (s *Store) ClearSessionID(ctx context.Context) error {
	if err := s.kv.Delete(ctx, keySID); err != nil {
		return err
	}
	return s.kv.Delete(ctx, keyOnboardingSession)
}

// OnboardingSessionID returns the session-scoped onboarding id fallback.
func (s *Store) OnboardingSessionID(ctx context.Context) (string, bool, error) {
	return s.kv.Get(ctx, keyOnboardingSession)
}

// SaveHandoff stores a JSON-encoded value in a transient hand-off slot.
func (s *Store) SaveHandoff(ctx context.Context, slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode handoff %s: %w", slot, err)
	}
	return s.kv.Set(ctx, slot, string(data))
}

// PeekHandoff decodes a hand-off slot without consuming it.
func (s *Store) PeekHandoff(ctx context.Context, slot string, out any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, slot)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode handoff %s: %w", slot, err)
	}
	return true, nil
}

// TakeHandoff decodes a hand-off slot and clears it, so the value cannot be
// replayed by a reload of the receiving page.
func (s *Store) TakeHandoff(ctx context.Context, slot string, out any) (bool, error) {
	ok, err := s.PeekHandoff(ctx, slot, out)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.kv.Delete(ctx, slot)
}

// ClearHandoff drops a hand-off slot without reading it.
func (s *Store) ClearHandoff(ctx context.Context, slot string) error {
	return s.kv.Delete(ctx, slot)
}
