package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/logging"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	handlers map[string]http.HandlerFunc
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == path {
			n++
		}
	}
	return n
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.URL.Path)
	b.mu.Unlock()
	if h, ok := b.handlers[r.URL.Path]; ok {
		h(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
}

func newTestService(t *testing.T, backend *fakeBackend) (*Service, *session.Store, *notification.Recorder) {
	t.Helper()
	if backend.handlers == nil {
		backend.handlers = map[string]http.HandlerFunc{}
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := session.NewStore(session.NewMemoryKV())
	require.NoError(t, store.SetToken(context.Background(), "h.p.s"))
	rec := &notification.Recorder{}
	client := api.New(srv.URL, store, rec, logging.Discard())
	return NewService(client, store, rec, rec, logging.Discard()), store, rec
}

func jsonOK(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
}

func TestFlexTimeDecoding(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2026-03-15T10:30:00Z"`, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"space separated", `"2026-03-15 10:30:00"`, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"date only", `"2026-03-15"`, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds", `1773138600`, time.Unix(1773138600, 0)},
		{"epoch millis", `1773138600000`, time.UnixMilli(1773138600000)},
		{"date array", `[2026, 3, 15]`, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"datetime array", `[2026, 3, 15, 10, 30, 5]`, time.Date(2026, 3, 15, 10, 30, 5, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ft FlexTime
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ft))
			assert.True(t, ft.Equal(tc.want), "got %v want %v", ft.Time, tc.want)
		})
	}

	t.Run("null", func(t *testing.T) {
		var ft FlexTime
		require.NoError(t, json.Unmarshal([]byte("null"), &ft))
		assert.True(t, ft.IsZero())
	})

	t.Run("garbage", func(t *testing.T) {
		var ft FlexTime
		assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ft))
	})
}

func TestDecodeWalletsTolerantShapes(t *testing.T) {
	bare := `[{"currency":"PEN","balance":"120.50","walletNumber":"W-1"}]`
	cases := []struct {
		name string
		raw  string
	}{
		{"bare array", bare},
		{"wallets wrapper", `{"wallets":` + bare + `}`},
		{"data wrapper", `{"data":` + bare + `}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wallets, err := decodeWallets(json.RawMessage(tc.raw))
			require.NoError(t, err)
			require.Len(t, wallets, 1)
			assert.Equal(t, "PEN", wallets[0].Currency)
			assert.True(t, wallets[0].Balance.Equal(decimal.RequireFromString("120.50")))
		})
	}

	t.Run("unrecognized", func(t *testing.T) {
		_, err := decodeWallets(json.RawMessage(`{"nope":true}`))
		assert.Error(t, err)
	})
}

func TestLoadAllCachesBalances(t *testing.T) {
	backend := &fakeBackend{handlers: map[string]http.HandlerFunc{
		"/api/wallet/all": jsonOK([]map[string]any{
			{"currency": "PEN", "balance": 250.75, "walletNumber": "W-PEN-1"},
			{"currency": "USD", "balance": 40, "walletNumber": "W-USD-1"},
		}),
	}}
	svc, _, _ := newTestService(t, backend)

	wallets, err := svc.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, wallets, 2)

	pen, ok := svc.Balance("PEN")
	require.True(t, ok)
	assert.Equal(t, "250.75", pen.Balance.StringFixed(2))
}

func TestFilterHistory(t *testing.T) {
	txs := []Transaction{
		{ID: "1", Type: TypeDeposit, Currency: "PEN"},
		{ID: "2", Type: TypeTransferIn, Currency: "PEN"},
		{ID: "3", Type: TypeTransferOut, Currency: "USD"},
		{ID: "4", Type: TypeConvertIn, Currency: "USD"},
		{ID: "5", Type: TypeConvertOut, Currency: "PEN"},
	}

	ids := func(txs []Transaction) []string {
		out := make([]string, len(txs))
		for i, tx := range txs {
			out[i] = tx.ID
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(FilterHistory(txs, HistoryFilter{})))
	assert.Equal(t, []string{"1"}, ids(FilterHistory(txs, HistoryFilter{Type: "DEPOSIT"})))
	assert.Equal(t, []string{"2", "3"}, ids(FilterHistory(txs, HistoryFilter{Type: "TRANSFER"})))
	assert.Equal(t, []string{"4", "5"}, ids(FilterHistory(txs, HistoryFilter{Type: "CONVERT"})))
	assert.Equal(t, []string{"3", "4"}, ids(FilterHistory(txs, HistoryFilter{Currency: "USD"})))
	assert.Equal(t, []string{"3"}, ids(FilterHistory(txs, HistoryFilter{Type: "TRANSFER", Currency: "USD"})))
}

func TestAllTransactionsPagesUntilShortPage(t *testing.T) {
	pageCount := 0
	backend := &fakeBackend{}
	backend.handlers = map[string]http.HandlerFunc{
		"/api/wallet/transactions": func(w http.ResponseWriter, r *http.Request) {
			pageCount++
			n := historyPageSize
			if pageCount == 2 {
				n = 7
			}
			txs := make([]map[string]any, n)
			for i := range txs {
				txs[i] = map[string]any{"id": "t", "type": "DEPOSIT", "amount": 1, "currency": "PEN"}
			}
			jsonOK(txs)(w, r)
		},
	}
	svc, _, _ := newTestService(t, backend)

	all, err := svc.AllTransactions(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, historyPageSize+7)
	assert.Equal(t, 2, pageCount)

	// Second read comes from the cache.
	_, err = svc.AllTransactions(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, pageCount)
}

func TestMovementRejectsNonPositiveAmounts(t *testing.T) {
	backend := &fakeBackend{}
	svc, _, _ := newTestService(t, backend)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, decimal.Zero, "")
	assert.Error(t, err)
	_, err = svc.Withdraw(ctx, decimal.NewFromInt(-5), "")
	assert.Error(t, err)
	assert.Empty(t, backend.calls)
}

func TestExchangeRate(t *testing.T) {
	backend := &fakeBackend{handlers: map[string]http.HandlerFunc{
		"/api/wallet/exchange-rate": jsonOK(map[string]any{"rate": 0.2685}),
	}}
	svc, _, _ := newTestService(t, backend)

	rate, err := svc.ExchangeRate(context.Background(), "PEN", "USD")
	require.NoError(t, err)
	assert.Equal(t, "0.2685", rate.String())
}

func TestCardDetailsValidate(t *testing.T) {
	valid := CardDetails{Number: "4111 1111 1111 1111", CVV: "123", Expiry: "09/28", Holder: "MARIA QUISPE"}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		mut  func(*CardDetails)
	}{
		{"short number", func(c *CardDetails) { c.Number = "4111" }},
		{"bad cvv", func(c *CardDetails) { c.CVV = "12" }},
		{"bad expiry month", func(c *CardDetails) { c.Expiry = "13/28" }},
		{"bad expiry shape", func(c *CardDetails) { c.Expiry = "2028-09" }},
		{"empty holder", func(c *CardDetails) { c.Holder = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := valid
			tc.mut(&card)
			assert.Error(t, card.Validate())
		})
	}
}
