package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNothingToCommit reports that the staged file did not differ from HEAD.
// Callers treat it as a no-op, not a failure.
var ErrNothingToCommit = errors.New("nothing to commit")

// Publisher provides git operations for publishing a synced file
type Publisher interface {
	// Publish stages relPath inside repoDir, commits it with message and
	// pushes the branch to the remote. Returns ErrNothingToCommit when the
	// working tree already matches HEAD; the push is still performed.
	Publish(ctx context.Context, repoDir, relPath, message, remote, branch string) error
}

// ShellPublisher implements Publisher by shelling out to the git command
type ShellPublisher struct{}

// NewShellPublisher creates a new publisher that uses the git command
func NewShellPublisher() *ShellPublisher {
	return &ShellPublisher{}
}

// Publish stages, commits and pushes the given file.
func (p *ShellPublisher) Publish(ctx context.Context, repoDir, relPath, message, remote, branch string) error {
	if err := p.stage(ctx, repoDir, relPath); err != nil {
		return err
	}

	noop := false
	if err := p.commit(ctx, repoDir, message); err != nil {
		if !errors.Is(err, ErrNothingToCommit) {
			return err
		}
		noop = true
	}

	if err := p.push(ctx, repoDir, remote, branch); err != nil {
		return err
	}

	if noop {
		return ErrNothingToCommit
	}
	return nil
}

// stage adds exactly the given path to the index
func (p *ShellPublisher) stage(ctx context.Context, repoDir, relPath string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "add", "--", relPath)
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("git add failed: %w", err)
	}
	return nil
}

// commit records the staged change. A clean index maps to ErrNothingToCommit.
func (p *ShellPublisher) commit(ctx context.Context, repoDir, message string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "commit", "-m", message)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// git exits 1 with this phrase when the index matches HEAD.
		if strings.Contains(string(output), "nothing to commit") {
			return ErrNothingToCommit
		}
		return fmt.Errorf("git commit failed: %w: %s", err, string(output))
	}
	return nil
}

// push publishes the branch to the configured remote
func (p *ShellPublisher) push(ctx context.Context, repoDir, remote, branch string) error {
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "push", remote, branch)
	if err := runCommand(cmd); err != nil {
		return fmt.Errorf("git push failed: %w", err)
	}
	return nil
}

// runCommand executes a command and returns an error with stderr on failure
func runCommand(cmd *exec.Cmd) error {
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
