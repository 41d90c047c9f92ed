package cli

import (
	"github.com/spf13/cobra"

	"github.com/enone-pay/enone/internal/account"
)

func newProfileCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and update the account profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			p, err := a.account.Me(cmd.Context(), true)
			if err != nil {
				return err
			}
			a.printf("%s\n", p.FullName())
			a.printf("correo:    %s\n", account.MaskEmail(p.Email))
			a.printf("teléfono:  %s\n", account.MaskPhone(p.Phone))
			a.printf("documento: %s\n", p.DocumentNumber)
			a.printf("límite diario:  S/ %s\n", p.DailyLimit.StringFixed(2))
			a.printf("usado hoy:      S/ %s\n", p.DailyVolumePEN.StringFixed(2))
			a.printf("disponible hoy: S/ %s\n", p.RemainingLimit().StringFixed(2))
			if p.TwoFactorEnabled {
				a.printf("2FA: activado\n")
			}
			return nil
		},
	}

	changeEmail := &cobra.Command{
		Use:   "change-email",
		Short: "Change the account email, verified over SMS and the new inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.account.Me(cmd.Context(), false); err != nil {
				return err
			}
			return a.runWizard(cmd.Context(), a.account.ChangeEmailWizard())
		},
	}

	changePhone := &cobra.Command{
		Use:   "change-phone",
		Short: "Change the account phone, verified over email and the new number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.account.Me(cmd.Context(), false); err != nil {
				return err
			}
			return a.runWizard(cmd.Context(), a.account.ChangePhoneWizard())
		},
	}

	changeLimit := &cobra.Command{
		Use:   "change-limit",
		Short: "Change the daily transfer limit (S/ 500.00 to S/ 2,000.00)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.account.Me(cmd.Context(), false); err != nil {
				return err
			}
			return a.runWizard(cmd.Context(), a.account.ChangeLimitWizard())
		},
	}

	deleteAccount := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			a.printf("esta acción es irreversible; escribe %s para continuar\n", account.DeleteConfirmPhrase)
			return a.runWizard(cmd.Context(), a.account.DeleteAccountWizard())
		},
	}

	cmd.AddCommand(show, changeEmail, changePhone, changeLimit, deleteAccount)
	return cmd
}
