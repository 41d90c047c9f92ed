// Package wallet covers balances, transaction history, money movement, card
// activation, and the transfer confirmation flow.
package wallet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currencies the platform issues wallets in.
const (
	CurrencyPEN = "PEN"
	CurrencyUSD = "USD"
)

// Transaction types as the ledger reports them.
const (
	TypeDeposit     = "DEPOSIT"
	TypeWithdraw    = "WITHDRAW"
	TypeTransferIn  = "TRANSFER_IN"
	TypeTransferOut = "TRANSFER_OUT"
	TypeConvertIn   = "CONVERT_IN"
	TypeConvertOut  = "CONVERT_OUT"
)

// Wallet is one currency balance.
type Wallet struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	WalletNumber string          `json:"walletNumber"`
}

// Transaction is a ledger entry as served to the client. Immutable once
// fetched.
type Transaction struct {
	ID               string          `json:"id"`
	TransactionUID   string          `json:"transactionUid"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Description      string          `json:"description"`
	CreatedAt        FlexTime        `json:"createdAt"`
	CounterpartyName string          `json:"counterpartyName,omitempty"`
}

// FlexTime tolerates the backend's assorted timestamp encodings: RFC 3339
// strings, "2006-01-02 15:04:05" strings, epoch numbers in seconds or
// milliseconds, and [year, month, day, ...] arrays.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, str); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("unrecognized timestamp %q", str)
	}

	var epoch float64
	if err := json.Unmarshal(b, &epoch); err == nil {
		// Millisecond epochs outgrow any plausible second epoch.
		if epoch > 1e12 {
			t.Time = time.UnixMilli(int64(epoch))
		} else {
			t.Time = time.Unix(int64(epoch), 0)
		}
		return nil
	}

	var parts []int
	if err := json.Unmarshal(b, &parts); err == nil && len(parts) >= 3 {
		hour, minute, sec := 0, 0, 0
		if len(parts) > 3 {
			hour = parts[3]
		}
		if len(parts) > 4 {
			minute = parts[4]
		}
		if len(parts) > 5 {
			sec = parts[5]
		}
		t.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], hour, minute, sec, 0, time.UTC)
		return nil
	}

	return fmt.Errorf("unrecognized timestamp %s", s)
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// CurrencySymbol maps a currency code to its display symbol.
func CurrencySymbol(currency string) string {
	if currency == CurrencyPEN {
		return "S/"
	}
	return "$"
}
