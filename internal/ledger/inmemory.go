package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletKey struct {
	userID   string
	currency string
}

type inMemoryLedger struct {
	mu      sync.RWMutex
	wallets map[walletKey]*Wallet
	entries []Entry
	posted  map[string]Entry
	seq     int
}

// NewInMemory creates a concurrency-safe in-memory ledger. The stub backend
// runs on it; tests do too.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets: make(map[walletKey]*Wallet),
		posted:  make(map[string]Entry),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, userID, currency string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.ensure(userID, currency), nil
}

// ensure requires l.mu held.
func (l *inMemoryLedger) ensure(userID, currency string) *Wallet {
	key := walletKey{userID, currency}
	if w, ok := l.wallets[key]; ok {
		return w
	}
	l.seq++
	w := &Wallet{
		UserID:       userID,
		Currency:     currency,
		Balance:      decimal.Zero,
		WalletNumber: fmt.Sprintf("W-%s-%04d", currency, l.seq),
	}
	l.wallets[key] = w
	return w
}

func (l *inMemoryLedger) Wallets(_ context.Context, userID string) ([]Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Wallet
	for _, currency := range []string{"PEN", "USD"} {
		if w, ok := l.wallets[walletKey{userID, currency}]; ok {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (l *inMemoryLedger) Deposit(_ context.Context, userID, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInsufficientFunds
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindDeposit + ":" + clientTxID
	if prev, ok := l.posted[key]; ok {
		return prev, ErrDuplicateTransaction
	}

	w := l.ensure(userID, currency)
	w.Balance = w.Balance.Add(amount)

	return l.record(key, uuid.NewString(), userID, KindDeposit, currency, amount, description, ""), nil
}

func (l *inMemoryLedger) Withdraw(_ context.Context, userID, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInsufficientFunds
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindWithdraw + ":" + clientTxID
	if prev, ok := l.posted[key]; ok {
		return prev, ErrDuplicateTransaction
	}

	w, ok := l.wallets[walletKey{userID, currency}]
	if !ok {
		return Entry{}, ErrNoWallet
	}
	if w.Balance.LessThan(amount) {
		return Entry{}, ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)

	return l.record(key, uuid.NewString(), userID, KindWithdraw, currency, amount, description, ""), nil
}

func (l *inMemoryLedger) Convert(_ context.Context, userID, from, to, clientTxID string, amount, rate decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() || !rate.IsPositive() || from == to {
		return Entry{}, ErrInsufficientFunds
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindConvertOut + ":" + clientTxID
	if prev, ok := l.posted[key]; ok {
		return prev, ErrDuplicateTransaction
	}

	src, ok := l.wallets[walletKey{userID, from}]
	if !ok {
		return Entry{}, ErrNoWallet
	}
	if src.Balance.LessThan(amount) {
		return Entry{}, ErrInsufficientFunds
	}
	dst := l.ensure(userID, to)

	converted := amount.Mul(rate).Round(2)
	src.Balance = src.Balance.Sub(amount)
	dst.Balance = dst.Balance.Add(converted)

	txUID := uuid.NewString()
	out := l.record(key, txUID, userID, KindConvertOut, from, amount, description, "")
	l.record(KindConvertIn+":"+clientTxID, txUID, userID, KindConvertIn, to, converted, description, "")
	return out, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromUser, fromName, toUser, toName, currency, clientTxID string, amount decimal.Decimal, description string) (Entry, error) {
	if !amount.IsPositive() {
		return Entry{}, ErrInsufficientFunds
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := KindTransferOut + ":" + clientTxID
	if prev, ok := l.posted[key]; ok {
		return prev, ErrDuplicateTransaction
	}

	src, ok := l.wallets[walletKey{fromUser, currency}]
	if !ok {
		return Entry{}, ErrNoWallet
	}
	if src.Balance.LessThan(amount) {
		return Entry{}, ErrInsufficientFunds
	}
	dst := l.ensure(toUser, currency)

	src.Balance = src.Balance.Sub(amount)
	dst.Balance = dst.Balance.Add(amount)

	txUID := uuid.NewString()
	out := l.record(key, txUID, fromUser, KindTransferOut, currency, amount, description, toName)
	l.record(KindTransferIn+":"+clientTxID, txUID, toUser, KindTransferIn, currency, amount, description, fromName)
	return out, nil
}

// record requires l.mu held.
func (l *inMemoryLedger) record(key, txUID, userID, kind, currency string, amount decimal.Decimal, description, counterparty string) Entry {
	entry := Entry{
		ID:               uuid.NewString(),
		TransactionUID:   txUID,
		UserID:           userID,
		Type:             kind,
		Amount:           amount,
		Currency:         currency,
		Description:      description,
		CreatedAt:        time.Now().UTC(),
		CounterpartyName: counterparty,
	}
	l.posted[key] = entry
	l.entries = append(l.entries, entry)
	return entry
}

func (l *inMemoryLedger) Entries(_ context.Context, userID string, page, limit int, currency string) ([]Entry, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Newest first.
	var mine []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.UserID != userID {
			continue
		}
		if currency != "" && e.Currency != currency {
			continue
		}
		mine = append(mine, e)
	}

	start := (page - 1) * limit
	if start >= len(mine) {
		return []Entry{}, nil
	}
	end := start + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], nil
}
