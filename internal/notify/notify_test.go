package notify

import (
	"io"
	"log/slog"
	"testing"
)

func TestNop(t *testing.T) {
	// Must be callable without side effects.
	NewNop().Notify("title", "message")
}

func TestDesktop_SwallowsErrors(t *testing.T) {
	// On headless systems the notification backend is unavailable; the
	// call must still return without panicking or reporting anything.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewDesktop(logger).Notify("Resume synced", "Updated public/resume.pdf")
}
