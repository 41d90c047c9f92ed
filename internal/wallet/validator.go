package wallet

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/enone-pay/enone/internal/api"
)

// Recipient is a validated transfer counterparty.
type Recipient struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// DisplayName joins the name fields, falling back to the email.
func (r Recipient) DisplayName() string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if name == "" {
		return r.Email
	}
	return name
}

// ValidateRecipient looks up a transfer counterparty by email or phone.
func (s *Service) ValidateRecipient(ctx context.Context, id string) (Recipient, error) {
	var r Recipient
	path := "/api/wallet/validate-recipient?id=" + url.QueryEscape(id)
	if err := s.client.CallData(ctx, path, api.CallOptions{Auth: true}, &r); err != nil {
		return Recipient{}, err
	}
	return r, nil
}

// minQueryLen is the shortest recipient query worth a lookup.
const minQueryLen = 3

// DefaultDebounce is the pause after the last keystroke before a lookup
// fires.
const DefaultDebounce = 500 * time.Millisecond

// ValidationResult is the outcome of one recipient lookup.
type ValidationResult struct {
	Query     string
	Recipient *Recipient
	Err       error
}

// RecipientValidator debounces keystrokes in the recipient field and keeps
// only the result of the most recently issued lookup: each lookup carries a
// sequence number, and a response whose number is no longer current is
// dropped, so a slow early response can never overwrite a later one.
type RecipientValidator struct {
	lookup   func(ctx context.Context, id string) (Recipient, error)
	delay    time.Duration
	onResult func(ValidationResult)

	mu     sync.Mutex
	timer  *time.Timer
	seq    uint64
	result *ValidationResult
}

// NewRecipientValidator constructs a validator around a lookup function.
// onResult, when set, fires for every applied result; it may be called from
// a timer goroutine.
func NewRecipientValidator(lookup func(ctx context.Context, id string) (Recipient, error), delay time.Duration, onResult func(ValidationResult)) *RecipientValidator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &RecipientValidator{lookup: lookup, delay: delay, onResult: onResult}
}

// Input feeds one keystroke's worth of field content. Any pending lookup
// timer restarts; queries shorter than three characters clear the current
// result and schedule nothing.
func (v *RecipientValidator) Input(ctx context.Context, value string) {
	value = strings.TrimSpace(value)

	v.mu.Lock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.result = nil
	v.seq++
	if len(value) < minQueryLen {
		v.mu.Unlock()
		return
	}
	seq := v.seq
	v.timer = time.AfterFunc(v.delay, func() {
		v.fire(ctx, seq, value)
	})
	v.mu.Unlock()
}

func (v *RecipientValidator) fire(ctx context.Context, seq uint64, value string) {
	recipient, err := v.lookup(ctx, value)

	v.mu.Lock()
	if seq != v.seq {
		// A newer keystroke superseded this lookup.
		v.mu.Unlock()
		return
	}
	res := ValidationResult{Query: value}
	if err != nil {
		res.Err = err
	} else {
		res.Recipient = &recipient
	}
	v.result = &res
	cb := v.onResult
	v.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}

// Result returns the currently applicable validation outcome, if any.
func (v *RecipientValidator) Result() (ValidationResult, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.result == nil {
		return ValidationResult{}, false
	}
	return *v.result, true
}

// Recipient returns the validated counterparty when the latest result was
// positive.
func (v *RecipientValidator) Recipient() *Recipient {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.result == nil {
		return nil
	}
	return v.result.Recipient
}

// Stop cancels any pending lookup timer.
func (v *RecipientValidator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}
