package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
)

func TestStageTransferValidation(t *testing.T) {
	backend := &fakeBackend{handlers: map[string]http.HandlerFunc{
		"/api/wallet/all": jsonOK([]map[string]any{
			{"currency": "PEN", "balance": 100, "walletNumber": "W-1"},
		}),
	}}
	svc, store, rec := newTestService(t, backend)
	ctx := context.Background()
	_, err := svc.LoadAll(ctx)
	require.NoError(t, err)

	recipient := &Recipient{ID: "u2", FirstName: "Jose", LastName: "Paz", Email: "jose@example.pe"}

	t.Run("no validated recipient", func(t *testing.T) {
		err := svc.StageTransfer(ctx, nil, "jose@example.pe", "PEN", decimal.NewFromInt(10), "almuerzo")
		assert.Error(t, err)
	})

	t.Run("missing description", func(t *testing.T) {
		err := svc.StageTransfer(ctx, recipient, "jose@example.pe", "PEN", decimal.NewFromInt(10), "  ")
		assert.Error(t, err)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		err := svc.StageTransfer(ctx, recipient, "jose@example.pe", "PEN", decimal.Zero, "almuerzo")
		assert.Error(t, err)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := svc.StageTransfer(ctx, recipient, "jose@example.pe", "PEN", decimal.NewFromInt(150), "almuerzo")
		assert.Error(t, err)
	})

	t.Run("stages and navigates", func(t *testing.T) {
		err := svc.StageTransfer(ctx, recipient, "jose@example.pe", "PEN", decimal.NewFromInt(25), "almuerzo")
		require.NoError(t, err)
		assert.Equal(t, notification.PageConfirmTransfer, rec.LastPage())

		var pending PendingTransfer
		ok, err := store.PeekHandoff(ctx, session.HandoffPendingTransfer, &pending)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Jose Paz", pending.RecipientName)
		assert.Equal(t, "25", pending.Amount.String())
	})
}

func TestPendingTransferAbsentNavigatesBack(t *testing.T) {
	svc, _, rec := newTestService(t, &fakeBackend{})
	_, ok, err := svc.PendingTransfer(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, notification.PageWallet, rec.LastPage())
}

func TestTransferConfirmRequiresCodeOnlyWith2FA(t *testing.T) {
	pending := PendingTransfer{
		RecipientIdentifier: "jose@example.pe",
		Currency:            "PEN",
		Amount:              decimal.NewFromInt(25),
		Description:         "almuerzo",
	}

	t.Run("2fa enabled rejects missing code", func(t *testing.T) {
		backend := &fakeBackend{}
		svc, _, _ := newTestService(t, backend)
		w := svc.TransferConfirmWizard(pending, true)
		require.NoError(t, w.Open())
		err := w.Submit(context.Background(), map[string]string{"token2fa": ""})
		assert.Error(t, err)
		assert.Equal(t, 0, backend.count("/api/wallet/transfer"))
	})

	t.Run("2fa disabled submits without code", func(t *testing.T) {
		var gotBody map[string]any
		backend := &fakeBackend{}
		backend.handlers = map[string]http.HandlerFunc{
			"/api/wallet/transfer": func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				jsonOK(map[string]any{"id": "tx-1", "type": "TRANSFER_OUT", "amount": 25, "currency": "PEN"})(w, r)
			},
		}
		svc, _, _ := newTestService(t, backend)
		w := svc.TransferConfirmWizard(pending, false)
		require.NoError(t, w.Open())
		require.NoError(t, w.Submit(context.Background(), nil))
		assert.Nil(t, gotBody["token2fa"])
		assert.Equal(t, "jose@example.pe", gotBody["toUsername"])
	})
}

func TestTransferConfirmSuccessHandsOffVoucher(t *testing.T) {
	pending := PendingTransfer{
		RecipientIdentifier: "jose@example.pe",
		Currency:            "PEN",
		Amount:              decimal.NewFromInt(25),
		Description:         "almuerzo",
	}
	backend := &fakeBackend{handlers: map[string]http.HandlerFunc{
		"/api/wallet/transfer": jsonOK(map[string]any{
			"id": "tx-9", "transactionUid": "uid-9", "type": "TRANSFER_OUT",
			"amount": 25, "currency": "PEN", "counterpartyName": "Jose Paz",
		}),
	}}
	svc, store, rec := newTestService(t, backend)
	ctx := context.Background()
	require.NoError(t, store.SaveHandoff(ctx, session.HandoffPendingTransfer, pending))

	w := svc.TransferConfirmWizard(pending, true)
	require.NoError(t, w.Open())
	require.NoError(t, w.Submit(ctx, map[string]string{"token2fa": "123456"}))

	// Hand-off consumed, voucher staged, user on the receipt page.
	ok, err := store.PeekHandoff(ctx, session.HandoffPendingTransfer, &PendingTransfer{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, notification.PageVoucher, rec.LastPage())

	tx, ok, err := svc.Voucher(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tx-9", tx.ID)
	assert.Equal(t, "Jose Paz", tx.CounterpartyName)

	// The voucher reads once.
	_, ok, err = svc.Voucher(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
