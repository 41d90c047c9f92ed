// Package ledger keeps the stub backend's balances and transaction history.
// Every mutation records an Entry per affected side, and client transaction
// identifiers make retried requests idempotent.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when the source wallet lacks available
	// balance to cover a requested posting.
	ErrInsufficientFunds = errors.New("saldo insuficiente")

	// ErrDuplicateTransaction indicates the provided client transaction
	// identifier already exists and the operation should be treated as
	// idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrNoWallet indicates the user has no wallet in the requested
	// currency.
	ErrNoWallet = errors.New("wallet not found")
)

// Entry kinds, mirroring what the client renders.
const (
	KindDeposit     = "DEPOSIT"
	KindWithdraw    = "WITHDRAW"
	KindTransferIn  = "TRANSFER_IN"
	KindTransferOut = "TRANSFER_OUT"
	KindConvertIn   = "CONVERT_IN"
	KindConvertOut  = "CONVERT_OUT"
)

// Wallet is one user's balance in one currency.
type Wallet struct {
	UserID       string          `json:"-"`
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	WalletNumber string          `json:"walletNumber"`
}

// Entry is one side of a posted transaction.
type Entry struct {
	ID               string          `json:"id"`
	TransactionUID   string          `json:"transactionUid"`
	UserID           string          `json:"-"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Description      string          `json:"description"`
	CreatedAt        time.Time       `json:"createdAt"`
	CounterpartyName string          `json:"counterpartyName,omitempty"`
}

// Ledger defines the contract implemented by ledger backends.
type Ledger interface {
	EnsureWallet(ctx context.Context, userID, currency string) (Wallet, error)
	Wallets(ctx context.Context, userID string) ([]Wallet, error)
	Deposit(ctx context.Context, userID, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error)
	Withdraw(ctx context.Context, userID, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error)
	Convert(ctx context.Context, userID, from, to, clientTxID string, amount, rate decimal.Decimal, description string) (Entry, error)
	Transfer(ctx context.Context, fromUser, fromName, toUser, toName, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error)
	Entries(ctx context.Context, userID string, page, limit int, currency string) ([]Entry, error)
}
