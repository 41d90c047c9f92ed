// Package notification surfaces user-facing notices and page navigation for
// front ends. A CLI, a TUI, or a test harness plugs in its own
// implementations.
package notification

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Notice levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Pages the client can ask the front end to present.
const (
	PageLogin           = "login"
	PageRegister        = "register"
	PageWallet          = "wallet"
	PageAdminDashboard  = "admin-dashboard"
	PageConfirmTransfer = "confirm-transfer"
	PageVoucher         = "voucher"
	PageKYC             = "kyc"
	PageVerifyPhone     = "verify-phone"
)

// Notice is a user-facing message.
type Notice struct {
	Level string
	Title string
	Text  string
}

// Notifier presents notices to the user.
type Notifier interface {
	Notify(notice Notice)
}

// Navigator switches the front end to another page.
type Navigator interface {
	GoTo(page string)
}

// LoggerNotifier writes notices to the structured logger. It is the default
// when a front end supplies nothing better.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Notify writes the notice to the structured logger.
func (n *LoggerNotifier) Notify(notice Notice) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info("notice", "level", notice.Level, "title", notice.Title, "text", notice.Text)
}

// WriterNotifier prints notices to a writer, one line each.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterNotifier constructs a notifier that prints to out.
func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

// Notify prints the notice.
func (n *WriterNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if notice.Title != "" {
		fmt.Fprintf(n.out, "[%s] %s: %s\n", notice.Level, notice.Title, notice.Text)
		return
	}
	fmt.Fprintf(n.out, "[%s] %s\n", notice.Level, notice.Text)
}

// LoggerNavigator records navigation requests in the logger. Front ends that
// cannot switch pages, such as one-shot CLI commands, use it as a sink.
type LoggerNavigator struct {
	logger *slog.Logger
}

// NewLoggerNavigator constructs a logging navigator.
func NewLoggerNavigator(logger *slog.Logger) *LoggerNavigator {
	return &LoggerNavigator{logger: logger}
}

// GoTo records the requested page.
func (n *LoggerNavigator) GoTo(page string) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.Info("navigate", "page", page)
}

// Recorder captures notices and navigations for tests.
type Recorder struct {
	mu      sync.Mutex
	Notices []Notice
	Pages   []string
}

// Notify appends the notice.
func (r *Recorder) Notify(notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, notice)
}

// GoTo appends the page.
func (r *Recorder) GoTo(page string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Pages = append(r.Pages, page)
}

// LastPage returns the most recent navigation target, or "".
func (r *Recorder) LastPage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Pages) == 0 {
		return ""
	}
	return r.Pages[len(r.Pages)-1]
}
