package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/OpenGG/hostswitch/internal/hostswitch/paths"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

// Environment variables that override the config file.
const (
	EnvHome          = "HOSTSWITCH_HOME"
	EnvHostsFile     = "HOSTSWITCH_HOSTS_FILE"
	EnvEditor        = "HOSTSWITCH_EDITOR"
	EnvNoUpdateCheck = "HOSTSWITCH_NO_UPDATE_CHECK"
)

// DefaultUpdateURL is the release feed queried by the update check.
const DefaultUpdateURL = "https://api.github.com/repos/OpenGG/hostswitch/releases/latest"

// Config holds user settings read from config.toml.
type Config struct {
	HostsPath        string `toml:"hosts_path"`
	Editor           string `toml:"editor"`
	ElevationCommand string `toml:"elevation_command"`
	RequireElevation bool   `toml:"require_elevation"`
	LogLevel         string `toml:"log_level"`
	UpdateCheck      bool   `toml:"update_check"`
	UpdateURL        string `toml:"update_url"`

	// Unknown lists keys present in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ElevationCommand: "sudo",
		RequireElevation: true,
		LogLevel:         "warn",
		UpdateCheck:      true,
		UpdateURL:        DefaultUpdateURL,
	}
}

// defaultFile is written on first run. Every setting is commented out so the
// built-in defaults keep applying until the user opts in.
const defaultFile = `# hostswitch configuration

# Path of the live hosts file. Defaults to the platform location.
# hosts_path = "/etc/hosts"

# Editor used by "hostswitch edit". Defaults to $VISUAL, $EDITOR, then vi.
# editor = "vim"

# Command used to re-run hostswitch with elevated privileges.
# elevation_command = "sudo"

# Set to false if your user can write the hosts file directly.
# require_elevation = true

# One of debug, info, warn, error.
# log_level = "warn"

# Check for new releases at most once a day.
# update_check = true
`

// Root resolves the config root: $HOSTSWITCH_HOME, else ~/.hostswitch.
func Root(homeDir string, getenv func(string) string) string {
	if getenv != nil {
		if dir := strings.TrimSpace(getenv(EnvHome)); dir != "" {
			return dir
		}
	}
	return paths.DefaultRoot(homeDir)
}

// Load reads the config file at path. A missing file yields Default().
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto the config.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvHostsFile)); v != "" {
		c.HostsPath = v
	}
	if v := strings.TrimSpace(getenv(EnvEditor)); v != "" {
		c.Editor = v
	}
	if v := strings.TrimSpace(getenv(EnvNoUpdateCheck)); v != "" && v != "0" && !strings.EqualFold(v, "false") {
		c.UpdateCheck = false
	}
}

// WriteDefault creates a commented config file at path unless one exists.
// It reports whether a file was written.
func WriteDefault(store *storage.Storage, path string) (bool, error) {
	exists, err := store.Exists(path)
	if err != nil {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := store.MkdirAll(filepath.Dir(path)); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := store.WriteFile(path, []byte(defaultFile)); err != nil {
		return false, fmt.Errorf("initializing config: %w", err)
	}
	return true, nil
}
