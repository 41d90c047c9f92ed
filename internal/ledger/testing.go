package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedBalance funds a wallet directly, bypassing the card requirement.
func SeedBalance(t testing.TB, l Ledger, userID, currency, amount string) {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("seed amount %q: %v", amount, err)
	}
	if _, err := l.Deposit(context.Background(), userID, currency, "seed-"+uuid.NewString(), d, "Depósito inicial"); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
}
