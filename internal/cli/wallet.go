package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/enone-pay/enone/internal/wallet"
)

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("monto inválido: %q", raw)
	}
	return amount, nil
}

func newBalanceCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show wallet balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			wallets, err := a.wallet.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range wallets {
				a.printf("%s %s %s  (%s)\n", wallet.CurrencySymbol(w.Currency), w.Balance.StringFixed(2), w.Currency, w.WalletNumber)
			}
			return nil
		},
	}
}

func newHistoryCmd(app func() *App) *cobra.Command {
	var currency, kind string
	var refresh bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			all, err := a.wallet.AllTransactions(cmd.Context(), refresh)
			if err != nil {
				return err
			}
			txs := wallet.FilterHistory(all, wallet.HistoryFilter{Type: kind, Currency: currency})
			for _, tx := range txs {
				line := fmt.Sprintf("%s  %-12s %s %s %s",
					tx.CreatedAt.Format("2006-01-02 15:04"),
					tx.Type,
					wallet.CurrencySymbol(tx.Currency),
					tx.Amount.StringFixed(2),
					tx.Description)
				if tx.CounterpartyName != "" {
					line += "  · " + tx.CounterpartyName
				}
				a.printf("%s\n", line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "filter by currency (PEN, USD)")
	cmd.Flags().StringVar(&kind, "type", "", "filter by type family (DEPOSIT, TRANSFER, CONVERT)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached history")
	return cmd
}

func newDepositCmd(app func() *App) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit into the PEN wallet from the active card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			tx, err := a.wallet.Deposit(cmd.Context(), amount, description)
			if err != nil {
				return err
			}
			a.printf("depósito registrado: %s\n", tx.TransactionUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "movement description")
	return cmd
}

func newWithdrawCmd(app func() *App) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw from the PEN wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			tx, err := a.wallet.Withdraw(cmd.Context(), amount, description)
			if err != nil {
				return err
			}
			a.printf("retiro registrado: %s\n", tx.TransactionUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "movement description")
	return cmd
}

func newConvertCmd(app func() *App) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "convert <amount>",
		Short: "Convert between the PEN and USD wallets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			rate, err := a.wallet.ExchangeRate(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			a.printf("tipo de cambio %s→%s: %s\n", from, to, rate.String())
			tx, err := a.wallet.Convert(cmd.Context(), from, to, amount, "")
			if err != nil {
				return err
			}
			a.printf("conversión registrada: %s\n", tx.TransactionUID)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "PEN", "source currency")
	cmd.Flags().StringVar(&to, "to", "USD", "target currency")
	return cmd
}

func newRateCmd(app func() *App) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Show the current exchange rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			rate, err := a.wallet.ExchangeRate(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			a.printf("1 %s = %s %s\n", from, rate.String(), to)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "PEN", "source currency")
	cmd.Flags().StringVar(&to, "to", "USD", "target currency")
	return cmd
}

func newTransferCmd(app func() *App) *cobra.Command {
	var description, currency string
	cmd := &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Send money to another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := app()

			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			if _, err := a.wallet.LoadAll(ctx); err != nil {
				return err
			}

			recipient, err := a.wallet.ValidateRecipient(ctx, args[0])
			if err != nil {
				return err
			}
			a.printf("destinatario: %s\n", recipient.DisplayName())

			if err := a.wallet.StageTransfer(ctx, &recipient, args[0], currency, amount, description); err != nil {
				return err
			}
			pending, okPending, err := a.wallet.PendingTransfer(ctx)
			if err != nil {
				return err
			}
			if !okPending {
				return fmt.Errorf("la transferencia pendiente expiró")
			}

			profile, err := a.account.Me(ctx, false)
			if err != nil {
				return err
			}
			a.printf("enviar %s %s a %s: confirma con enter\n",
				wallet.CurrencySymbol(pending.Currency), pending.Amount.StringFixed(2), pending.RecipientName)
			if err := a.runWizard(ctx, a.wallet.TransferConfirmWizard(pending, profile.TwoFactorEnabled)); err != nil {
				return err
			}

			voucher, okVoucher, err := a.wallet.Voucher(ctx)
			if err != nil || !okVoucher {
				return err
			}
			a.printf("comprobante %s: %s %s a %s\n",
				voucher.TransactionUID, wallet.CurrencySymbol(voucher.Currency),
				voucher.Amount.StringFixed(2), voucher.CounterpartyName)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "transfer description")
	cmd.Flags().StringVar(&currency, "currency", "PEN", "wallet currency")
	return cmd
}

func newCardCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage the deposit card",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the active card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			st, err := a.wallet.CardStatus(cmd.Context())
			if err != nil {
				return err
			}
			if !st.HasActiveCard {
				a.printf("sin tarjeta activa\n")
				return nil
			}
			a.printf("%s - %s\n", st.MaskedNumber, st.HolderName)
			return nil
		},
	}

	var number, cvv, expiry, holder string
	activate := &cobra.Command{
		Use:   "activate",
		Short: "Link a card for deposits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			details := wallet.CardDetails{Number: number, CVV: cvv, Expiry: expiry, Holder: holder}
			if err := details.Validate(); err != nil {
				return err
			}
			masked, err := a.wallet.ActivateCard(cmd.Context(), details)
			if err != nil {
				return err
			}
			a.printf("tarjeta activada: %s\n", masked)
			return nil
		},
	}
	activate.Flags().StringVar(&number, "number", "", "16-digit card number")
	activate.Flags().StringVar(&cvv, "cvv", "", "security code")
	activate.Flags().StringVar(&expiry, "expiry", "", "expiry as MM/YY")
	activate.Flags().StringVar(&holder, "holder", "", "name on the card")
	_ = activate.MarkFlagRequired("number")
	_ = activate.MarkFlagRequired("cvv")
	_ = activate.MarkFlagRequired("expiry")
	_ = activate.MarkFlagRequired("holder")

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Unlink the active card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().wallet.DeactivateCard(cmd.Context())
		},
	}

	cmd.AddCommand(status, activate, deactivate)
	return cmd
}
