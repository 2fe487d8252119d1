package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
source: "/home/user/Documents/resume.pdf"

project:
  dir: "/home/user/code/portfolio"
  dest: "public/assets/resume.pdf"

git:
  enabled: true
  remote: "origin"
  branch: "main"

deploy:
  enabled: true
  command: "vercel"
  args: ["--prod", "--yes"]

notify:
  enabled: true

log:
  file: "/home/user/.local/state/cvsyncd/cvsyncd.log"

watch:
  debounce: "5s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify loaded values
	if cfg.Source != "/home/user/Documents/resume.pdf" {
		t.Errorf("unexpected source: %s", cfg.Source)
	}
	if cfg.Project.Dir != "/home/user/code/portfolio" {
		t.Errorf("unexpected project dir: %s", cfg.Project.Dir)
	}
	if !cfg.Git.Enabled || cfg.Git.Branch != "main" {
		t.Errorf("unexpected git config: %+v", cfg.Git)
	}
	if cfg.Deploy.Command != "vercel" || len(cfg.Deploy.Args) != 2 {
		t.Errorf("unexpected deploy config: %+v", cfg.Deploy)
	}
	if cfg.Watch.Debounce.Std() != 5*time.Second {
		t.Errorf("expected 5s debounce, got %s", cfg.Watch.Debounce)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
source: "/home/user/resume.pdf"
project:
  dir: "/home/user/site"
  dest: "static/resume.pdf"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Git.Remote != "origin" {
		t.Errorf("expected default remote origin, got %s", cfg.Git.Remote)
	}
	if cfg.Git.Branch != "main" {
		t.Errorf("expected default branch main, got %s", cfg.Git.Branch)
	}
	if cfg.Watch.Debounce.Std() != 2*time.Second {
		t.Errorf("expected default 2s debounce, got %s", cfg.Watch.Debounce)
	}
	if cfg.Log.File == "" {
		t.Error("expected a default log file path")
	}
	if cfg.Watch.LockFile != filepath.Join(filepath.Dir(cfg.Log.File), "cvsyncd.lock") {
		t.Errorf("expected lock file next to log file, got %s", cfg.Watch.LockFile)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CVSYNCD_TEST_HOME", "/srv/resume")

	path := writeConfig(t, `
source: "$CVSYNCD_TEST_HOME/resume.pdf"
project:
  dir: "$CVSYNCD_TEST_HOME/site"
  dest: "public/resume.pdf"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Source != "/srv/resume/resume.pdf" {
		t.Errorf("env not expanded in source: %s", cfg.Source)
	}
	if cfg.Project.Dir != "/srv/resume/site" {
		t.Errorf("env not expanded in project dir: %s", cfg.Project.Dir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
source: "/home/user/resume.pdf"
project:
  dir: "/home/user/site"
  dest: "static/resume.pdf"
watch:
  debounce: "soon"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid debounce duration, got nil")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Source: "/home/user/resume.pdf",
			Project: ProjectConfig{
				Dir:  "/home/user/site",
				Dest: "public/resume.pdf",
			},
			Git: GitConfig{Enabled: true, Remote: "origin", Branch: "main"},
		}
	}

	for _, tc := range []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing source",
			mutate:  func(c *Config) { c.Source = "" },
			wantErr: "source is required",
		},
		{
			name:    "missing project dir",
			mutate:  func(c *Config) { c.Project.Dir = "" },
			wantErr: "project.dir is required",
		},
		{
			name:    "relative project dir",
			mutate:  func(c *Config) { c.Project.Dir = "site" },
			wantErr: "must be an absolute path",
		},
		{
			name:    "missing dest",
			mutate:  func(c *Config) { c.Project.Dest = "" },
			wantErr: "project.dest is required",
		},
		{
			name:    "absolute dest",
			mutate:  func(c *Config) { c.Project.Dest = "/etc/resume.pdf" },
			wantErr: "must be relative",
		},
		{
			name:    "escaping dest",
			mutate:  func(c *Config) { c.Project.Dest = "../outside/resume.pdf" },
			wantErr: "must not escape",
		},
		{
			name:    "git enabled without branch",
			mutate:  func(c *Config) { c.Git.Branch = "" },
			wantErr: "git.branch is required",
		},
		{
			name:    "deploy enabled without command",
			mutate:  func(c *Config) { c.Deploy.Enabled = true },
			wantErr: "deploy.command is required",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestDestPaths(t *testing.T) {
	cfg := &Config{
		Project: ProjectConfig{
			Dir:  "/home/user/site",
			Dest: "public/./resume.pdf",
		},
	}

	if got := cfg.DestPath(); got != "/home/user/site/public/resume.pdf" {
		t.Errorf("unexpected DestPath: %s", got)
	}
	if got := cfg.DestRel(); got != "public/resume.pdf" {
		t.Errorf("unexpected DestRel: %s", got)
	}
}
