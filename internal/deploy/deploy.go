package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Trigger provides operations for publishing the project via an external
// deployment CLI
type Trigger interface {
	// Deploy runs the deployment command for the project. The invoked
	// tool's exit status decides success.
	Deploy(ctx context.Context) error
	// IsAvailable checks if the deployment command can be found
	IsAvailable() (bool, error)
}

// ShellTrigger implements Trigger by shelling out to the configured CLI
type ShellTrigger struct {
	command    string
	args       []string
	projectDir string
}

// NewShellTrigger creates a new deployment trigger for the given command
func NewShellTrigger(command string, args []string, projectDir string) *ShellTrigger {
	return &ShellTrigger{
		command:    command,
		args:       args,
		projectDir: projectDir,
	}
}

// Deploy invokes the deployment CLI in the project directory.
// CI=1 keeps tools like vercel and netlify from prompting.
func (t *ShellTrigger) Deploy(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.command, t.args...)
	cmd.Dir = t.projectDir
	cmd.Env = append(os.Environ(), "CI=1")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", t.command, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// IsAvailable checks if the deployment command exists on PATH
func (t *ShellTrigger) IsAvailable() (bool, error) {
	if _, err := exec.LookPath(t.command); err != nil {
		return false, fmt.Errorf("deploy command %q not available: %w", t.command, err)
	}
	return true, nil
}
