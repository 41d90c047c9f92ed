package cli

import (
	"github.com/spf13/cobra"

	"github.com/enone-pay/enone/internal/onboarding"
)

func newLoginCmd(app func() *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and persist the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if password == "" {
				var err error
				if password, err = a.prompt("contraseña"); err != nil {
					return err
				}
			}
			page, err := a.account.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			a.printf("sesión iniciada, destino: %s\n", page)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().account.Logout(cmd.Context())
		},
	}
}

func newRegisterCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Open an account",
	}

	var email, phone, password string
	start := &cobra.Command{
		Use:   "start",
		Short: "Begin onboarding with email, phone and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			sid, err := a.signup.Start(cmd.Context(), email, phone, password)
			if err != nil {
				return err
			}
			a.printf("registro iniciado, sesión %s\n", sid)
			a.printf("revisa los códigos enviados a tu correo y teléfono\n")
			return nil
		},
	}
	start.Flags().StringVar(&email, "email", "", "email address")
	start.Flags().StringVar(&phone, "phone", "", "phone in +51 format")
	start.Flags().StringVar(&password, "password", "", "password, 8 characters minimum")
	_ = start.MarkFlagRequired("email")
	_ = start.MarkFlagRequired("phone")
	_ = start.MarkFlagRequired("password")

	verifyEmail := &cobra.Command{
		Use:   "verify-email <code>",
		Short: "Confirm the email verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().signup.VerifyEmailCode(cmd.Context(), "", args[0])
		},
	}
	verifyPhone := &cobra.Command{
		Use:   "verify-phone <code>",
		Short: "Confirm the SMS verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().signup.VerifyPhone(cmd.Context(), "", args[0])
		},
	}
	resendEmail := &cobra.Command{
		Use:   "resend-email",
		Short: "Resend the email verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().signup.ResendEmail(cmd.Context(), "")
		},
	}
	resendPhone := &cobra.Command{
		Use:   "resend-phone",
		Short: "Resend the SMS verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().signup.ResendPhone(cmd.Context(), "")
		},
	}

	var dni, firstName, lastName, gender string
	kyc := &cobra.Command{
		Use:   "kyc",
		Short: "Complete identity verification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().signup.Complete(cmd.Context(), onboarding.CompleteRequest{
				DocumentNumber: dni,
				FirstName:      firstName,
				LastName:       lastName,
				Gender:         gender,
			})
		},
	}
	kyc.Flags().StringVar(&dni, "dni", "", "8-digit DNI")
	kyc.Flags().StringVar(&firstName, "first-name", "", "first name as registered")
	kyc.Flags().StringVar(&lastName, "last-name", "", "last name as registered")
	kyc.Flags().StringVar(&gender, "gender", "", "optional gender")
	_ = kyc.MarkFlagRequired("dni")
	_ = kyc.MarkFlagRequired("first-name")
	_ = kyc.MarkFlagRequired("last-name")

	cmd.AddCommand(start, verifyEmail, verifyPhone, resendEmail, resendPhone, kyc)
	return cmd
}

func newTwoFactorCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "2fa",
		Short: "Manage two-factor authentication",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether 2FA is enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			st, err := a.account.TwoFactorStatus(cmd.Context())
			if err != nil {
				return err
			}
			if st.Enabled {
				a.printf("2FA activado\n")
			} else {
				a.printf("2FA desactivado\n")
			}
			return nil
		},
	}

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Generate a secret and confirm it with a code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			setup, err := a.account.GenerateTwoFactor(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("secreto: %s (expira en %ds)\n", setup.Secret, setup.ExpiresIn)
			code, err := a.prompt("código")
			if err != nil {
				return err
			}
			if err := a.account.VerifyTwoFactor(cmd.Context(), code); err != nil {
				return err
			}
			a.printf("2FA activado\n")
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable <code>",
		Short: "Turn off 2FA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().account.DisableTwoFactor(cmd.Context(), args[0])
		},
	}

	current := &cobra.Command{
		Use:   "code",
		Short: "Show the current verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			code, err := a.account.CurrentTwoFactorCode(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s (válido %ds)\n", code.Code, code.SecondsRemaining)
			return nil
		},
	}

	cmd.AddCommand(status, enable, disable, current)
	return cmd
}
