package paths

import (
	"path/filepath"
	"strings"
)

// Directory and file name constants for the hostswitch config root.
const (
	ConfigDirName     = ".hostswitch"
	ProfilesDirName   = "profiles"
	BackupsDirName    = "backups"
	StateFileName     = "current.json"
	ConfigFileName    = "config.toml"
	UpdateStateName   = "update-check.json"
	ProfileSuffix     = ".hosts"
	BackupPrefix      = "hosts_"
	UnixHostsPath     = "/etc/hosts"
	WindowsHostsPath  = `C:\Windows\System32\drivers\etc\hosts`
	windowsHostsTail  = `System32\drivers\etc\hosts`
	windowsSystemRoot = "SystemRoot"
)

// PathBuilder provides methods to construct hostswitch paths relative to a config root.
type PathBuilder struct {
	root string
}

// New creates a new PathBuilder for the given config root.
func New(root string) *PathBuilder {
	return &PathBuilder{root: root}
}

// DefaultRoot returns the config root inside the given home directory.
func DefaultRoot(homeDir string) string {
	return filepath.Join(homeDir, ConfigDirName)
}

// Root returns the config root directory.
func (p *PathBuilder) Root() string {
	return p.root
}

// ProfilesDir returns the directory where named profiles are stored.
func (p *PathBuilder) ProfilesDir() string {
	return filepath.Join(p.root, ProfilesDirName)
}

// BackupsDir returns the directory where backups are stored.
func (p *PathBuilder) BackupsDir() string {
	return filepath.Join(p.root, BackupsDirName)
}

// StatePath returns the path of the active-profile record.
func (p *PathBuilder) StatePath() string {
	return filepath.Join(p.root, StateFileName)
}

// ConfigPath returns the path of the optional TOML configuration file.
func (p *PathBuilder) ConfigPath() string {
	return filepath.Join(p.root, ConfigFileName)
}

// UpdateStatePath returns the path where the update checker caches its last result.
func (p *PathBuilder) UpdateStatePath() string {
	return filepath.Join(p.root, UpdateStateName)
}

// HostsPath returns the platform's hosts file location. On Windows the
// SystemRoot environment variable is honoured when set.
func HostsPath(goos string, getenv func(string) string) string {
	if goos != "windows" {
		return UnixHostsPath
	}
	if getenv != nil {
		if root := strings.TrimSpace(getenv(windowsSystemRoot)); root != "" {
			return strings.TrimRight(root, `\`) + `\` + windowsHostsTail
		}
	}
	return WindowsHostsPath
}
