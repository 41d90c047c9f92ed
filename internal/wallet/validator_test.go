package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupRecorder struct {
	mu      sync.Mutex
	queries []string
	// block, when set, gates each lookup until a value is sent
	block chan struct{}
	fail  bool
}

func (l *lookupRecorder) lookup(ctx context.Context, id string) (Recipient, error) {
	l.mu.Lock()
	l.queries = append(l.queries, id)
	block := l.block
	fail := l.fail
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail {
		return Recipient{}, errors.New("usuario no encontrado")
	}
	return Recipient{ID: "u-" + id, FirstName: "Ana", LastName: "Paz", Email: id + "@example.pe"}, nil
}

func (l *lookupRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.queries...)
}

func waitForResult(t *testing.T, v *RecipientValidator) ValidationResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if res, ok := v.Result(); ok {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no validation result arrived")
	return ValidationResult{}
}

func TestValidatorDebouncesRapidKeystrokes(t *testing.T) {
	rec := &lookupRecorder{}
	v := NewRecipientValidator(rec.lookup, 50*time.Millisecond, nil)
	defer v.Stop()

	ctx := context.Background()
	v.Input(ctx, "a")
	v.Input(ctx, "an")
	v.Input(ctx, "ana")

	res := waitForResult(t, v)
	assert.Equal(t, "ana", res.Query)
	require.NotNil(t, res.Recipient)
	assert.Equal(t, "Ana Paz", res.Recipient.DisplayName())

	// Exactly one lookup fired, for the final value.
	assert.Equal(t, []string{"ana"}, rec.all())
}

func TestValidatorSkipsShortQueries(t *testing.T) {
	rec := &lookupRecorder{}
	v := NewRecipientValidator(rec.lookup, 20*time.Millisecond, nil)
	defer v.Stop()

	v.Input(context.Background(), "ab")
	time.Sleep(80 * time.Millisecond)

	assert.Empty(t, rec.all())
	_, ok := v.Result()
	assert.False(t, ok)
}

func TestValidatorNewKeystrokeClearsResult(t *testing.T) {
	rec := &lookupRecorder{}
	v := NewRecipientValidator(rec.lookup, 20*time.Millisecond, nil)
	defer v.Stop()

	ctx := context.Background()
	v.Input(ctx, "ana")
	waitForResult(t, v)

	// Typing again invalidates the shown result immediately.
	v.Input(ctx, "anab")
	_, ok := v.Result()
	assert.False(t, ok)
	assert.Nil(t, v.Recipient())
}

func TestValidatorDiscardsStaleResponse(t *testing.T) {
	rec := &lookupRecorder{block: make(chan struct{})}
	v := NewRecipientValidator(rec.lookup, 10*time.Millisecond, nil)
	defer v.Stop()

	ctx := context.Background()
	v.Input(ctx, "ana")

	// Wait until the first lookup is in flight, then type more.
	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, []string{"ana"}, rec.all())

	v.Input(ctx, "ana@example.pe")

	// Release both lookups; the stale "ana" response must not surface.
	rec.block <- struct{}{}
	rec.block <- struct{}{}

	res := waitForResult(t, v)
	assert.Equal(t, "ana@example.pe", res.Query)
	require.NotNil(t, res.Recipient)
	assert.Equal(t, "ana@example.pe@example.pe", res.Recipient.Email)
}

func TestValidatorSurfacesLookupErrors(t *testing.T) {
	rec := &lookupRecorder{fail: true}
	var cbRes ValidationResult
	var cbOnce sync.Once
	done := make(chan struct{})
	v := NewRecipientValidator(rec.lookup, 10*time.Millisecond, func(res ValidationResult) {
		cbOnce.Do(func() {
			cbRes = res
			close(done)
		})
	})
	defer v.Stop()

	v.Input(context.Background(), "nadie")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
	assert.Error(t, cbRes.Err)
	assert.Nil(t, cbRes.Recipient)
}
