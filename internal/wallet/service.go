package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
	"github.com/enone-pay/enone/internal/validate"
)

const historyPageSize = 50

// Service owns wallet balances, history, and money movement.
type Service struct {
	client   *api.Client
	store    *session.Store
	notifier notification.Notifier
	nav      notification.Navigator
	logger   *slog.Logger

	mu      sync.Mutex
	wallets map[string]Wallet
	history []Transaction
}

// NewService constructs the wallet service.
func NewService(client *api.Client, store *session.Store, notifier notification.Notifier, nav notification.Navigator, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		store:    store,
		notifier: notifier,
		nav:      nav,
		logger:   logger,
		wallets:  map[string]Wallet{},
	}
}

// LoadAll fetches every wallet and refreshes the balance cache. The payload
// shape has drifted across backend builds, so the decode is tolerant: a bare
// array, or an object wrapping one under "wallets" or "data".
func (s *Service) LoadAll(ctx context.Context) ([]Wallet, error) {
	env, err := s.client.Call(ctx, "/api/wallet/all", api.CallOptions{Auth: true})
	if err != nil {
		return nil, err
	}
	wallets, err := decodeWallets(env.Data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, w := range wallets {
		s.wallets[w.Currency] = w
	}
	s.mu.Unlock()
	return wallets, nil
}

func decodeWallets(raw json.RawMessage) ([]Wallet, error) {
	var wallets []Wallet
	if err := json.Unmarshal(raw, &wallets); err == nil {
		return wallets, nil
	}
	var wrapped struct {
		Wallets []Wallet        `json:"wallets"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.Wallets != nil {
			return wrapped.Wallets, nil
		}
		if wrapped.Data != nil {
			if err := json.Unmarshal(wrapped.Data, &wallets); err == nil {
				return wallets, nil
			}
		}
	}
	return nil, fmt.Errorf("formato de respuesta de wallets inválido")
}

// Balance returns the cached wallet for a currency.
func (s *Service) Balance(currency string) (Wallet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[currency]
	return w, ok
}

// Transactions fetches one page of history, optionally scoped to a
// currency.
func (s *Service) Transactions(ctx context.Context, page, limit int, currency string) ([]Transaction, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	if currency != "" {
		q.Set("currency", currency)
	}
	env, err := s.client.Call(ctx, "/api/wallet/transactions?"+q.Encode(), api.CallOptions{Auth: true})
	if err != nil {
		return nil, err
	}
	return decodeTransactions(env.Data)
}

func decodeTransactions(raw json.RawMessage) ([]Transaction, error) {
	var txs []Transaction
	if err := json.Unmarshal(raw, &txs); err == nil {
		return txs, nil
	}
	var wrapped struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Transactions != nil {
		return wrapped.Transactions, nil
	}
	return nil, fmt.Errorf("formato de transacciones inválido")
}

// AllTransactions pages through the full history and caches it for
// filtering. Refresh discards the cache first.
func (s *Service) AllTransactions(ctx context.Context, refresh bool) ([]Transaction, error) {
	s.mu.Lock()
	if !refresh && s.history != nil {
		cached := append([]Transaction(nil), s.history...)
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	var all []Transaction
	for page := 1; ; page++ {
		txs, err := s.Transactions(ctx, page, historyPageSize, "")
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
		if len(txs) < historyPageSize {
			break
		}
	}

	s.mu.Lock()
	s.history = all
	s.mu.Unlock()
	return all, nil
}

// HistoryFilter narrows a history view.
type HistoryFilter struct {
	// Type is a family: DEPOSIT, TRANSFER, or CONVERT. TRANSFER and
	// CONVERT match both directions.
	Type     string
	Currency string
}

// FilterHistory applies the filter to a transaction list.
func FilterHistory(txs []Transaction, filter HistoryFilter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if filter.Type != "" {
			switch filter.Type {
			case TypeDeposit:
				if tx.Type != TypeDeposit {
					continue
				}
			default:
				if !strings.Contains(tx.Type, filter.Type) {
					continue
				}
			}
		}
		if filter.Currency != "" && tx.Currency != filter.Currency {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// ExchangeRate fetches the conversion rate between two currencies.
func (s *Service) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	var out struct {
		Rate decimal.Decimal `json:"rate"`
	}
	err := s.client.CallData(ctx, "/api/wallet/exchange-rate?"+q.Encode(), api.CallOptions{Auth: true}, &out)
	if err != nil {
		return decimal.Zero, err
	}
	if out.Rate.IsZero() {
		return decimal.Zero, fmt.Errorf("tipo de cambio no disponible")
	}
	return out.Rate, nil
}

// Deposit credits the PEN wallet from the active card.
func (s *Service) Deposit(ctx context.Context, amount decimal.Decimal, description string) (Transaction, error) {
	return s.movement(ctx, "/api/wallet/deposit", map[string]any{
		"amount":      json.Number(amount.String()),
		"description": orDefault(description, "Depósito"),
	}, amount)
}

// Withdraw debits the PEN wallet.
func (s *Service) Withdraw(ctx context.Context, amount decimal.Decimal, description string) (Transaction, error) {
	return s.movement(ctx, "/api/wallet/withdraw", map[string]any{
		"amount":      json.Number(amount.String()),
		"description": orDefault(description, "Retiro"),
	}, amount)
}

// Convert moves value between the PEN and USD wallets at the current rate.
func (s *Service) Convert(ctx context.Context, from, to string, amount decimal.Decimal, description string) (Transaction, error) {
	return s.movement(ctx, "/api/wallet/convert", map[string]any{
		"fromCurrency": from,
		"toCurrency":   to,
		"amount":       json.Number(amount.String()),
		"description":  orDefault(description, "Conversión"),
	}, amount)
}

func (s *Service) movement(ctx context.Context, path string, body map[string]any, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("el monto debe ser mayor a 0")
	}
	var tx Transaction
	err := s.client.CallData(ctx, path, api.CallOptions{Auth: true, Body: body, Idempotent: true}, &tx)
	if err != nil {
		return Transaction{}, err
	}
	s.invalidate()
	return tx, nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// CardStatus is the active-card state for deposits.
type CardStatus struct {
	HasActiveCard bool   `json:"hasActiveCard"`
	MaskedNumber  string `json:"maskedNumber"`
	HolderName    string `json:"holderName"`
}

// CardStatus fetches whether the user has an active card linked.
func (s *Service) CardStatus(ctx context.Context) (CardStatus, error) {
	var st CardStatus
	err := s.client.CallData(ctx, "/api/wallet/activar-tarjeta/status", api.CallOptions{Auth: true}, &st)
	if err != nil {
		return CardStatus{}, err
	}
	return st, nil
}

// CardDetails is the activation payload for linking a card.
type CardDetails struct {
	Number string
	CVV    string
	Expiry string
	Holder string
}

// Validate applies the local card checks before any request.
func (c CardDetails) Validate() error {
	number := validate.Digits(c.Number)
	if len(number) != 16 {
		return fmt.Errorf("número de tarjeta inválido, se esperan 16 dígitos")
	}
	cvv := validate.Digits(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 {
		return fmt.Errorf("CVV inválido")
	}
	if !validate.CardExpiry(c.Expiry) {
		return fmt.Errorf("fecha de vencimiento inválida, usa MM/AA")
	}
	if strings.TrimSpace(c.Holder) == "" {
		return fmt.Errorf("ingresa el nombre del titular")
	}
	return nil
}

// ActivateCard links a card for deposits and returns the masked number.
func (s *Service) ActivateCard(ctx context.Context, card CardDetails) (string, error) {
	if err := card.Validate(); err != nil {
		return "", err
	}
	var out struct {
		MaskedNumber string `json:"numeroTarjetaEnmascarado"`
	}
	err := s.client.CallData(ctx, "/api/wallet/activar-tarjeta", api.CallOptions{
		Auth: true,
		Body: map[string]string{
			"numeroTarjeta":    validate.Digits(card.Number),
			"cvv":              validate.Digits(card.CVV),
			"fechaVencimiento": strings.TrimSpace(card.Expiry),
			"nombreTitular":    strings.ToUpper(strings.TrimSpace(card.Holder)),
		},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.MaskedNumber, nil
}

// DeactivateCard unlinks the active card.
func (s *Service) DeactivateCard(ctx context.Context) error {
	_, err := s.client.Call(ctx, "/api/wallet/desactivar-tarjeta", api.CallOptions{Method: "POST", Auth: true})
	return err
}
