package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/skaufmann/cvsyncd/internal/config"
	"github.com/skaufmann/cvsyncd/internal/deploy"
	"github.com/skaufmann/cvsyncd/internal/git"
	"github.com/skaufmann/cvsyncd/internal/notify"
)

var (
	// ErrMissingSource reports that the configured source file does not exist
	ErrMissingSource = errors.New("source file does not exist")
	// ErrLocked reports that another run holds the run lock
	ErrLocked = errors.New("another sync is already running")
)

// commitMessage is the fixed commit message template; the verb embeds the
// source path so the project history shows where the file came from.
const commitMessage = "Update resume from %s"

// Engine orchestrates the sync pipeline
type Engine struct {
	cfg       *config.Config
	publisher git.Publisher
	trigger   deploy.Trigger
	notifier  notify.Notifier
	logger    *slog.Logger
	dryRun    bool
}

// NewEngine creates a new sync engine
func NewEngine(cfg *config.Config, publisher git.Publisher, trigger deploy.Trigger, notifier notify.Notifier, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:       cfg,
		publisher: publisher,
		trigger:   trigger,
		notifier:  notifier,
		logger:    logger,
		dryRun:    dryRun,
	}
}

// Run executes one pass of the pipeline. Fatal errors are logged, raised as
// a notification and returned; the caller decides the exit status.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	result, err := e.run(ctx)
	if err != nil {
		e.logger.Error("sync failed", "error", err)
		e.notifier.Notify("Resume sync failed", err.Error())
		return nil, err
	}
	return result, nil
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	e.logger.Info("starting sync",
		"source", e.cfg.Source,
		"dest", e.cfg.DestPath(),
		"dry_run", e.dryRun)

	// Serialize concurrent triggers on the same destination
	unlock, err := e.acquireLock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Validate source
	if _, err := os.Stat(e.cfg.Source); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, e.cfg.Source)
		}
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}

	// Detect change by content digest
	result := &Result{}
	result.SourceHash, err = fileHash(e.cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to hash source file: %w", err)
	}

	destPath := e.cfg.DestPath()
	result.DestHash, err = destHash(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash destination file: %w", err)
	}

	if result.SourceHash == result.DestHash {
		e.logger.Info("No changes detected, skipping sync", "source", e.cfg.Source)
		result.Skipped = true
		result.Commit = CommitSkipped
		return result, nil
	}

	if e.dryRun {
		e.logPlan(destPath)
		e.logger.Info("dry-run complete, no changes applied")
		result.Commit = CommitSkipped
		return result, nil
	}

	// Copy source into the project
	if err := copyFile(e.cfg.Source, destPath); err != nil {
		return nil, fmt.Errorf("failed to copy resume to project: %w", err)
	}
	result.Copied = true
	e.logger.Info("Copied resume to project", "dest", destPath)

	// Publish via version control
	result.Commit = CommitSkipped
	if e.cfg.Git.Enabled {
		commit, err := e.publish(ctx)
		if err != nil {
			return nil, err
		}
		result.Commit = commit
	}

	// Trigger deployment
	if e.cfg.Deploy.Enabled {
		e.logger.Info("triggering deployment", "command", e.cfg.Deploy.Command)
		if err := e.trigger.Deploy(ctx); err != nil {
			return nil, fmt.Errorf("deployment failed: %w", err)
		}
		result.Deployed = true
		e.logger.Info("deployment triggered successfully")
	}

	e.logger.Info("sync completed successfully")
	e.notifier.Notify("Resume synced", fmt.Sprintf("Updated %s", e.cfg.DestRel()))
	return result, nil
}

// publish stages, commits and pushes the destination file
func (e *Engine) publish(ctx context.Context) (Commit, error) {
	message := fmt.Sprintf(commitMessage, e.cfg.Source)
	e.logger.Info("publishing to git",
		"path", e.cfg.DestRel(),
		"remote", e.cfg.Git.Remote,
		"branch", e.cfg.Git.Branch)

	err := e.publisher.Publish(ctx, e.cfg.Project.Dir, e.cfg.DestRel(), message, e.cfg.Git.Remote, e.cfg.Git.Branch)
	if errors.Is(err, git.ErrNothingToCommit) {
		// Not a failure: the tree already matched HEAD, branch was pushed.
		e.logger.Info("nothing to commit, continuing")
		return CommitNoop, nil
	}
	if err != nil {
		return CommitSkipped, fmt.Errorf("failed to publish: %w", err)
	}

	e.logger.Info("pushed to remote", "remote", e.cfg.Git.Remote, "branch", e.cfg.Git.Branch)
	return CommitPushed, nil
}

// acquireLock takes the flock-based run lock. A held lock means another
// invocation is mid-run; fail fast instead of racing on the destination.
func (e *Engine) acquireLock() (func(), error) {
	if e.cfg.Watch.LockFile == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(e.cfg.Watch.LockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(e.cfg.Watch.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, e.cfg.Watch.LockFile)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("failed to release run lock", "error", err)
		}
	}, nil
}

// logPlan logs what a real run would do, for dry-run mode
func (e *Engine) logPlan(destPath string) {
	e.logger.Info("[dry-run] would copy", "source", e.cfg.Source, "dest", destPath)
	if e.cfg.Git.Enabled {
		e.logger.Info("[dry-run] would commit and push",
			"path", e.cfg.DestRel(),
			"remote", e.cfg.Git.Remote,
			"branch", e.cfg.Git.Branch)
	}
	if e.cfg.Deploy.Enabled {
		e.logger.Info("[dry-run] would deploy", "command", e.cfg.Deploy.Command)
	}
}

// copyFile copies a file from src to dst with atomic write
func copyFile(src, dst string) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	// Open source
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".cvsyncd-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	// Copy content
	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Get source permissions
	srcInfo, err := srcFile.Stat()
	if err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Set permissions on temp file
	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Close temp file
	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, dst); err != nil {
		return err
	}

	return nil
}

// destHash hashes the destination file; a missing file hashes to "" which
// never matches a source hash and therefore means "changed".
func destHash(path string) (string, error) {
	hash, err := fileHash(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return hash, nil
}

// fileHash computes the SHA256 hash of a file
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
