package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/enone-pay/enone/internal/logging"
	"github.com/enone-pay/enone/internal/wizard"
)

func scriptedApp(input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		logger: logging.Discard(),
		in:     bufio.NewReader(strings.NewReader(input)),
		out:    &out,
	}, &out
}

func codeWizard(calls *[]string, failFirst bool) *wizard.Wizard {
	attempts := 0
	return wizard.New(wizard.Definition{
		Name: "test-flow",
		Steps: []wizard.Step{
			{
				Name:   "code",
				Fields: []string{"code"},
				Call: func(_ context.Context, f map[string]string) error {
					*calls = append(*calls, f["code"])
					attempts++
					if failFirst && attempts == 1 {
						return fmt.Errorf("código incorrecto")
					}
					return nil
				},
			},
		},
	}, logging.Discard())
}

func TestParseAmount(t *testing.T) {
	if _, err := parseAmount("12.50"); err != nil {
		t.Fatalf("parseAmount(12.50): %v", err)
	}
	for _, raw := range []string{"", "abc", "0", "-3"} {
		if _, err := parseAmount(raw); err == nil {
			t.Fatalf("parseAmount(%q) accepted", raw)
		}
	}
}

func TestRunWizardCompletesFlow(t *testing.T) {
	var calls []string
	app, _ := scriptedApp("123456\n")

	if err := app.runWizard(context.Background(), codeWizard(&calls, false)); err != nil {
		t.Fatalf("runWizard: %v", err)
	}
	if len(calls) != 1 || calls[0] != "123456" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRunWizardRetriesAfterFailure(t *testing.T) {
	var calls []string
	app, out := scriptedApp("999999\n123456\n")

	if err := app.runWizard(context.Background(), codeWizard(&calls, true)); err != nil {
		t.Fatalf("runWizard: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %v", calls)
	}
	if !strings.Contains(out.String(), "código incorrecto") {
		t.Fatalf("output missing failure notice: %s", out.String())
	}
}

func TestRunWizardCancelKeyword(t *testing.T) {
	var calls []string
	app, out := scriptedApp("cancelar\n")

	if err := app.runWizard(context.Background(), codeWizard(&calls, false)); err != nil {
		t.Fatalf("runWizard: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("flow called the backend after cancel: %v", calls)
	}
	if !strings.Contains(out.String(), "cancelado") {
		t.Fatalf("output missing cancel notice: %s", out.String())
	}
}
