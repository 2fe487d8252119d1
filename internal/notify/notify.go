package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Notifier raises user-facing messages about sync progress
type Notifier interface {
	// Notify shows a message to the user. Best-effort: implementations
	// must never fail the surrounding run.
	Notify(title, message string)
}

// Desktop implements Notifier via OS-level desktop notifications
type Desktop struct {
	logger *slog.Logger
}

// NewDesktop creates a desktop notifier
func NewDesktop(logger *slog.Logger) *Desktop {
	return &Desktop{logger: logger}
}

// Notify shows a desktop notification. Errors are logged and swallowed.
func (d *Desktop) Notify(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		d.logger.Debug("desktop notification failed", "error", err)
	}
}

// Nop implements Notifier by doing nothing. Used when notifications are
// disabled and in tests.
type Nop struct{}

// NewNop creates a no-op notifier
func NewNop() *Nop {
	return &Nop{}
}

// Notify discards the message
func (n *Nop) Notify(title, message string) {}
