package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enone-pay/enone/internal/account"
	"github.com/enone-pay/enone/internal/api"
	"github.com/enone-pay/enone/internal/config"
	"github.com/enone-pay/enone/internal/infra"
	"github.com/enone-pay/enone/internal/logging"
	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/onboarding"
	"github.com/enone-pay/enone/internal/session"
	"github.com/enone-pay/enone/internal/wallet"
	"github.com/enone-pay/enone/internal/wizard"
)

// maxWizardRetries bounds consecutive failed submissions before a flow is
// abandoned.
const maxWizardRetries = 3

// App bundles the configured services behind the command tree. Commands
// resolve it lazily so `enone help` works without a reachable backend.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *session.Store
	client  *api.Client
	account *account.Service
	wallet  *wallet.Service
	signup  *onboarding.Service
	in      *bufio.Reader
	out     io.Writer
}

func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel)

	var kv session.KV
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(context.Background(), cfg.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		kv = session.NewRedisKV(client, "")
	} else {
		kv = session.NewFileKV(cfg.StateFile)
	}
	store := session.NewStore(kv)

	out := os.Stdout
	notifier := notification.NewWriterNotifier(out)
	nav := notification.NewLoggerNavigator(logger)

	client := api.New(cfg.BaseURL, store, nav, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		client:  client,
		account: account.NewService(client, store, notifier, nav, logger),
		wallet:  wallet.NewService(client, store, notifier, nav, logger),
		signup:  onboarding.NewService(client, store, notifier, logger),
		in:      bufio.NewReader(os.Stdin),
		out:     out,
	}, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// prompt reads one line from stdin after printing the label.
func (a *App) prompt(label string) (string, error) {
	a.printf("%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// runWizard walks a step flow interactively, prompting for each field the
// current step declares. Typing "cancelar" aborts the flow.
func (a *App) runWizard(ctx context.Context, w *wizard.Wizard) error {
	if err := w.Open(); err != nil {
		return err
	}
	attempts := 0
	for {
		step, active := w.Current()
		if !active {
			return nil
		}
		fields := make(map[string]string, len(step.Fields))
		for _, name := range step.Fields {
			value, err := a.prompt(name)
			if err != nil {
				w.Cancel()
				return err
			}
			if value == "cancelar" {
				a.printf("cancelado\n")
				w.Cancel()
				return nil
			}
			fields[name] = value
		}
		if err := w.Submit(ctx, fields); err != nil {
			attempts++
			if attempts >= maxWizardRetries {
				w.Cancel()
				return err
			}
			a.printf("error: %v (escribe cancelar para salir)\n", err)
			continue
		}
		attempts = 0
	}
}

// NewRootCmd assembles the enone command tree.
func NewRootCmd() *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:           "enone",
		Short:         "EnOne digital wallet client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			var err error
			app, err = newApp()
			return err
		},
	}

	appRef := func() *App { return app }

	root.AddCommand(
		newLoginCmd(appRef),
		newLogoutCmd(appRef),
		newRegisterCmd(appRef),
		newTwoFactorCmd(appRef),
		newProfileCmd(appRef),
		newBalanceCmd(appRef),
		newHistoryCmd(appRef),
		newDepositCmd(appRef),
		newWithdrawCmd(appRef),
		newConvertCmd(appRef),
		newRateCmd(appRef),
		newTransferCmd(appRef),
		newCardCmd(appRef),
	)
	return root
}
