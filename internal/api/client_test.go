package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enone-pay/enone/internal/logging"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store, *notification.Recorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := session.NewStore(session.NewMemoryKV())
	rec := &notification.Recorder{}
	return New(srv.URL, store, rec, logging.Discard()), store, rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCallSuccessEnvelope(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"balance": "120.50"},
		})
	}))

	var out struct {
		Balance string `json:"balance"`
	}
	if err := client.CallData(context.Background(), "/api/wallet/all", CallOptions{}, &out); err != nil {
		t.Fatalf("CallData: %v", err)
	}
	if out.Balance != "120.50" {
		t.Fatalf("balance = %q", out.Balance)
	}
}

func TestCallErrorPrecedence(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"error wins", map[string]any{"success": false, "error": "saldo insuficiente", "message": "fallback"}, "saldo insuficiente"},
		{"message fallback", map[string]any{"success": false, "message": "intenta de nuevo"}, "intenta de nuevo"},
		{"status fallback", map[string]any{"success": false}, "HTTP 422"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnprocessableEntity, tc.body)
			}))
			_, err := client.Call(context.Background(), "/api/wallet/withdraw", CallOptions{Body: map[string]any{}})
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Message != tc.want {
				t.Fatalf("message = %q, want %q", apiErr.Message, tc.want)
			}
			if apiErr.Status != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", apiErr.Status)
			}
		})
	}
}

func TestCallCarriesErrorCode(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success": false,
			"code":    "LIMIT_CHANGE_COOLDOWN",
			"error":   "Debes esperar 24 horas entre cambios de límite",
		})
	}))
	_, err := client.Call(context.Background(), "/api/users/change-limit", CallOptions{Body: map[string]any{}})
	if CodeOf(err) != "LIMIT_CHANGE_COOLDOWN" {
		t.Fatalf("code = %q", CodeOf(err))
	}
}

func TestCallFalseEnvelopeOn200(t *testing.T) {
	// The platform sometimes reports failure in the envelope with a 200.
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "código inválido"})
	}))
	_, err := client.Call(context.Background(), "/api/users/verify-email-change", CallOptions{Body: map[string]any{}})
	if err == nil || err.Error() != "código inválido" {
		t.Fatalf("err = %v", err)
	}
}

func TestCallNonJSONBody(t *testing.T) {
	t.Run("ok status", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("pong"))
		}))
		env, err := client.Call(context.Background(), "/ping", CallOptions{})
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if !env.Success {
			t.Fatal("non-JSON 2xx should be treated as success")
		}
	})

	t.Run("error status with text body", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream exploded"))
		}))
		_, err := client.Call(context.Background(), "/ping", CallOptions{})
		if err == nil || err.Error() != "upstream exploded" {
			t.Fatalf("err = %v, want the raw body text", err)
		}
	})

	t.Run("error status with empty body", func(t *testing.T) {
		client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, err := client.Call(context.Background(), "/ping", CallOptions{})
		if err == nil || err.Error() != "HTTP 502" {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	}))
	_, err := client.Call(context.Background(), "/api/wallet/all", CallOptions{Auth: true})
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
}

func TestSessionExpiryInterception(t *testing.T) {
	client, store, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "error": "forbidden"})
	}))
	ctx := context.Background()
	if err := store.SetToken(ctx, "h.p.s"); err != nil {
		t.Fatal(err)
	}

	_, err := client.Call(ctx, "/api/wallet/all", CallOptions{Auth: true})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatal("token should be cleared after expiry")
	}
	if rec.LastPage() != notification.PageLogin {
		t.Fatalf("navigated to %q, want login", rec.LastPage())
	}
}

func TestSessionExpiryInterceptsUnauthenticatedCall(t *testing.T) {
	// Interception keys on the path, not on whether the call carried a
	// token. A stale session noticed by an open endpoint still logs out.
	client, store, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "no autorizado"})
	}))
	ctx := context.Background()
	if err := store.SetToken(ctx, "h.p.s"); err != nil {
		t.Fatal(err)
	}

	_, err := client.Call(ctx, "/api/onboarding/resend-email", CallOptions{Body: map[string]any{}})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, ok, _ := store.Token(ctx); ok {
		t.Fatal("token should be cleared after expiry")
	}
	if rec.LastPage() != notification.PageLogin {
		t.Fatalf("navigated to %q, want login", rec.LastPage())
	}
}

func TestLoginPathSurfacesForbidden(t *testing.T) {
	client, store, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "error": "Credenciales inválidas"})
	}))
	ctx := context.Background()
	if err := store.SetToken(ctx, "h.p.s"); err != nil {
		t.Fatal(err)
	}

	_, err := client.Call(ctx, "/api/auth/login", CallOptions{Auth: true, Body: map[string]any{}})
	if errors.Is(err, ErrSessionExpired) {
		t.Fatal("login failures must not be swallowed as session expiry")
	}
	if err == nil || err.Error() != "Credenciales inválidas" {
		t.Fatalf("err = %v", err)
	}
	if _, ok, _ := store.Token(ctx); !ok {
		t.Fatal("token should survive a login failure")
	}
	if rec.LastPage() != "" {
		t.Fatalf("unexpected navigation to %q", rec.LastPage())
	}
}

func TestIdempotencyKeyHeader(t *testing.T) {
	var keys []string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	}))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Call(ctx, "/api/wallet/deposit", CallOptions{Body: map[string]any{}, Idempotent: true}); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}
	if len(keys) != 2 || keys[0] == "" || keys[0] == keys[1] {
		t.Fatalf("keys = %v, want two distinct non-empty keys", keys)
	}
}
