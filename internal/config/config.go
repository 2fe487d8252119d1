package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cvsyncd configuration
type Config struct {
	Source  string        `yaml:"source"`
	Project ProjectConfig `yaml:"project"`
	Git     GitConfig     `yaml:"git"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ProjectConfig configures the web project receiving the resume
type ProjectConfig struct {
	Dir  string `yaml:"dir"`
	Dest string `yaml:"dest"` // relative to Dir
}

// GitConfig configures version-control publishing
type GitConfig struct {
	Enabled bool   `yaml:"enabled"`
	Remote  string `yaml:"remote"`
	Branch  string `yaml:"branch"`
}

// DeployConfig configures the external deployment CLI
type DeployConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// NotifyConfig configures desktop notifications
type NotifyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the append-only log file
type LogConfig struct {
	File string `yaml:"file"`
}

// WatchConfig configures watch mode behavior
type WatchConfig struct {
	Debounce Duration `yaml:"debounce"`
	LockFile string   `yaml:"lock_file"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Source = os.ExpandEnv(c.Source)
	c.Project.Dir = os.ExpandEnv(c.Project.Dir)
	c.Project.Dest = os.ExpandEnv(c.Project.Dest)
	c.Deploy.Command = os.ExpandEnv(c.Deploy.Command)
	for i, arg := range c.Deploy.Args {
		c.Deploy.Args[i] = os.ExpandEnv(arg)
	}
	c.Log.File = os.ExpandEnv(c.Log.File)
	c.Watch.LockFile = os.ExpandEnv(c.Watch.LockFile)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Git.Remote == "" {
		c.Git.Remote = "origin"
	}
	if c.Git.Branch == "" {
		c.Git.Branch = "main"
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(2 * time.Second)
	}
	if c.Log.File == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Log.File = filepath.Join(home, ".local", "state", "cvsyncd", "cvsyncd.log")
		}
	}
	if c.Watch.LockFile == "" && c.Log.File != "" {
		c.Watch.LockFile = filepath.Join(filepath.Dir(c.Log.File), "cvsyncd.lock")
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}

	// Validate project config
	if c.Project.Dir == "" {
		return fmt.Errorf("project.dir is required")
	}
	if !filepath.IsAbs(c.Project.Dir) {
		return fmt.Errorf("project.dir must be an absolute path: %s", c.Project.Dir)
	}
	if c.Project.Dest == "" {
		return fmt.Errorf("project.dest is required")
	}
	if filepath.IsAbs(c.Project.Dest) {
		return fmt.Errorf("project.dest must be relative to project.dir: %s", c.Project.Dest)
	}
	// The destination must stay inside the project, both for the copy and
	// because the path is handed to git verbatim.
	cleaned := filepath.Clean(c.Project.Dest)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("project.dest must not escape project.dir: %s", c.Project.Dest)
	}

	// Validate git config
	if c.Git.Enabled {
		if c.Git.Remote == "" {
			return fmt.Errorf("git.remote is required when git is enabled")
		}
		if c.Git.Branch == "" {
			return fmt.Errorf("git.branch is required when git is enabled")
		}
	}

	// Validate deploy config
	if c.Deploy.Enabled && c.Deploy.Command == "" {
		return fmt.Errorf("deploy.command is required when deploy is enabled")
	}

	// Validate watch config
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be a positive duration: %s", c.Watch.Debounce)
	}

	return nil
}

// DestPath returns the absolute destination path inside the project
func (c *Config) DestPath() string {
	return filepath.Join(c.Project.Dir, c.Project.Dest)
}

// DestRel returns the destination path relative to the project root,
// cleaned, as it is passed to git.
func (c *Config) DestRel() string {
	return filepath.Clean(c.Project.Dest)
}

// LogDir returns the directory holding the log file
func (c *Config) LogDir() string {
	return filepath.Dir(c.Log.File)
}
