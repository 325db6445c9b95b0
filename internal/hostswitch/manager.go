package hostswitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/hostswitch/internal/hostswitch/backup"
	"github.com/OpenGG/hostswitch/internal/hostswitch/domain"
	"github.com/OpenGG/hostswitch/internal/hostswitch/paths"
	"github.com/OpenGG/hostswitch/internal/hostswitch/privilege"
	"github.com/OpenGG/hostswitch/internal/hostswitch/profile"
	"github.com/OpenGG/hostswitch/internal/hostswitch/state"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
	"github.com/OpenGG/hostswitch/internal/hostswitch/validator"
)

// DriftWarning is reported when the live file changed since the last switch.
const DriftWarning = "Hosts file was modified outside of hostswitch."

// Elevator decides whether the live file needs elevated privileges and
// re-runs the current command with them.
type Elevator interface {
	RequiresElevation(target string) bool
	ElevateAndRerun(ctx context.Context, args []string) privilege.Result
}

// Editor opens a file for interactive editing.
type Editor interface {
	Open(ctx context.Context, path string) error
}

// Options configures a Manager.
type Options struct {
	// Root is the config root, e.g. ~/.hostswitch.
	Root string
	// HostsPath is the live hosts file.
	HostsPath string
	// HostsOverridden marks HostsPath as user-supplied so it is forwarded
	// to an elevated child.
	HostsOverridden bool
	// Owner, when set, receives ownership of files written under Root.
	Owner *storage.Owner
	// ElevatedArgs are global flags repeated on an elevated re-run, such as
	// --verbose.
	ElevatedArgs []string

	Elevator Elevator
	Editor   Editor
	Logger   *slog.Logger
}

// Manager coordinates profile, state, backup and privilege handling for
// hosts file switching.
type Manager struct {
	fs              afero.Fs
	storage         *storage.Storage
	paths           *paths.PathBuilder
	hostsPath       string
	hostsOverridden bool
	elevatedArgs    []string
	validator       *validator.Validator
	profiles        *profile.Store
	tracker         *state.Tracker
	backups         *backup.Service
	elevator        Elevator
	editor          Editor
	logger          *slog.Logger
}

// NewManager creates a new Manager on fs.
func NewManager(fs afero.Fs, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store := storage.New(fs)
	store.SetOwner(opts.Owner)
	pb := paths.New(opts.Root)

	return &Manager{
		fs:              fs,
		storage:         store,
		paths:           pb,
		hostsPath:       opts.HostsPath,
		hostsOverridden: opts.HostsOverridden,
		elevatedArgs:    opts.ElevatedArgs,
		validator:       validator.New(),
		profiles:        profile.New(store, pb.ProfilesDir(), opts.HostsPath),
		tracker:         state.New(store, pb.StatePath(), opts.HostsPath, logger),
		backups:         backup.New(store, pb.BackupsDir(), opts.HostsPath, logger),
		elevator:        opts.Elevator,
		editor:          opts.Editor,
		logger:          logger,
	}
}

// SetNow overrides the clock used for backups and state records.
func (m *Manager) SetNow(now func() time.Time) {
	m.tracker.SetNow(now)
	m.backups.SetNow(now)
}

// FileSystem returns the underlying filesystem.
func (m *Manager) FileSystem() afero.Fs {
	return m.fs
}

// Paths returns the config root layout.
func (m *Manager) Paths() *paths.PathBuilder {
	return m.paths
}

// InitInfra ensures the profiles and backups directories exist.
func (m *Manager) InitInfra() error {
	if err := m.storage.MkdirAll(m.paths.ProfilesDir()); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	if err := m.storage.MkdirAll(m.paths.BackupsDir()); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}
	return nil
}

// NormalizeName trims surrounding whitespace from a typed profile name and
// validates the result. It does not touch the store.
func (m *Manager) NormalizeName(name string) (string, Result) {
	normalized, err := m.validator.NormalizeName(name)
	if err != nil {
		return "", invalidName(name, err)
	}
	return normalized, succeeded("")
}

func invalidName(name string, err error) Result {
	return failed(err, fmt.Sprintf("Invalid profile name '%s': %v.", name, err))
}

// ActiveProfile returns the active profile name, or "" when none is set.
func (m *Manager) ActiveProfile() string {
	return m.tracker.Active()
}

// ProfilePath returns the file backing a profile.
func (m *Manager) ProfilePath(name string) string {
	return m.profiles.Path(name)
}

// checkProfile validates name and confirms the profile exists.
func (m *Manager) checkProfile(name string) (Result, bool) {
	if ok, err := m.validator.ValidateName(name); !ok {
		return invalidName(name, err), false
	}
	exists, err := m.profiles.Exists(name)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", domain.ErrIOFailure, err),
			fmt.Sprintf("Error reading profile: %v", err)), false
	}
	if !exists {
		return failed(fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name),
			fmt.Sprintf("Profile '%s' does not exist.", name)), false
	}
	return Result{}, true
}

// SwitchProfile makes the named profile the live hosts file.
//
// When the process lacks privileges the whole switch is handed to an
// elevated re-run of the same command and its outcome is returned as is.
// Otherwise the live file is backed up when no profile is active or it
// drifted, replaced with the profile content, and the profile recorded as
// active.
func (m *Manager) SwitchProfile(ctx context.Context, name string) Result {
	if res, ok := m.checkProfile(name); !ok {
		return res
	}

	if m.elevator != nil && m.elevator.RequiresElevation(m.hostsPath) {
		return m.switchElevated(ctx, name)
	}

	var res Result
	active := m.tracker.Active()
	drifted := m.tracker.IsDrifted()
	if active == "" || drifted {
		if path, ok := m.backups.Backup(); ok {
			res.BackupPath = path
		}
		if drifted && active != "" {
			res.Warning = DriftWarning
			m.logger.Warn("live file drifted since last switch",
				"path", m.hostsPath,
				"previous_profile", active)
		}
	}

	content, err := m.profiles.Read(name)
	if err != nil {
		res.Message = fmt.Sprintf("Error switching profile: %v", err)
		res.Err = err
		return res
	}

	if err := m.storage.ReplaceFile(m.hostsPath, content); err != nil {
		if errors.Is(err, os.ErrPermission) {
			res.Message = "Permission denied. Run with sudo."
			res.Err = fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
			res.RequiresSudo = true
			return res
		}
		res.Message = fmt.Sprintf("Error switching profile: %v", err)
		res.Err = fmt.Errorf("%w: %w", domain.ErrIOFailure, err)
		return res
	}

	if err := m.tracker.SetActive(name); err != nil {
		res.Message = fmt.Sprintf("Switched hosts file to profile '%s', but the active profile could not be recorded: %v", name, err)
		res.Err = fmt.Errorf("%w: %w", domain.ErrIOFailure, err)
		return res
	}

	m.logger.Info("switched profile",
		"profile", name,
		"backup_path", res.BackupPath)
	res.Success = true
	res.Message = fmt.Sprintf("Switched to profile '%s'.", name)
	return res
}

func (m *Manager) switchElevated(ctx context.Context, name string) Result {
	args := []string{"--config-dir", m.paths.Root()}
	if m.hostsOverridden {
		args = append(args, "--hosts-file", m.hostsPath)
	}
	args = append(args, m.elevatedArgs...)
	args = append(args, "switch", name)

	out := m.elevator.ElevateAndRerun(ctx, args)
	return Result{
		Success:   out.Success,
		Message:   out.Message,
		Err:       out.Err,
		Delegated: out.Ran,
	}
}

// CreateProfile creates a profile from the default template, or from the
// live hosts file when fromLive is set.
func (m *Manager) CreateProfile(name string, fromLive bool) Result {
	if ok, err := m.validator.ValidateName(name); !ok {
		return invalidName(name, err)
	}

	source := profile.SourceTemplate
	if fromLive {
		source = profile.SourceLiveFile
	}
	if err := m.profiles.Create(name, source); err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			return failed(err, fmt.Sprintf("Profile '%s' already exists.", name))
		}
		return failed(err, fmt.Sprintf("Error creating profile: %v", err))
	}

	m.logger.Info("created profile", "profile", name, "from_live", fromLive)
	if fromLive {
		return succeeded(fmt.Sprintf("Profile '%s' created from current hosts file.", name))
	}
	return succeeded(fmt.Sprintf("Profile '%s' created with default content.", name))
}

// DeleteProfile removes an inactive profile. With confirmed unset it only
// runs the checks and asks the caller to confirm.
func (m *Manager) DeleteProfile(name string, confirmed bool) Result {
	if res, ok := m.checkProfile(name); !ok {
		return res
	}
	if m.tracker.Active() == name {
		return failed(fmt.Errorf("%w: %s", domain.ErrCannotDeleteActive, name),
			fmt.Sprintf("Cannot delete the currently active profile '%s'.", name))
	}
	if !confirmed {
		return Result{
			Message:              fmt.Sprintf("Delete profile '%s'?", name),
			RequiresConfirmation: true,
		}
	}

	if err := m.profiles.Delete(name); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return failed(err, fmt.Sprintf("Profile '%s' does not exist.", name))
		}
		return failed(err, fmt.Sprintf("Error deleting profile: %v", err))
	}
	m.logger.Info("deleted profile", "profile", name)
	return succeeded(fmt.Sprintf("Profile '%s' deleted.", name))
}

// ProfileContent returns the raw content of a profile.
func (m *Manager) ProfileContent(name string) (Result, []byte) {
	if ok, err := m.validator.ValidateName(name); !ok {
		return invalidName(name, err), nil
	}
	content, err := m.profiles.Read(name)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return failed(err, fmt.Sprintf("Profile '%s' does not exist.", name)), nil
		}
		return failed(err, fmt.Sprintf("Error reading profile: %v", err)), nil
	}
	return succeeded(""), content
}

// ListProfiles returns all profiles sorted by name, marking the active one.
func (m *Manager) ListProfiles() ([]ProfileInfo, Result) {
	names, err := m.profiles.List()
	if err != nil {
		return nil, failed(fmt.Errorf("%w: %w", domain.ErrIOFailure, err),
			fmt.Sprintf("Error listing profiles: %v", err))
	}
	active := m.tracker.Active()
	infos := make([]ProfileInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, ProfileInfo{Name: name, IsCurrent: name == active})
	}
	return infos, succeeded("")
}

// EditProfile opens a profile in the configured editor and waits for it.
func (m *Manager) EditProfile(ctx context.Context, name string) Result {
	if res, ok := m.checkProfile(name); !ok {
		return res
	}
	if m.editor == nil {
		return failed(errors.New("no editor available"), "Error opening editor: no editor available")
	}
	if err := m.editor.Open(ctx, m.profiles.Path(name)); err != nil {
		return failed(err, fmt.Sprintf("Error opening editor: %v", err))
	}
	return succeeded(fmt.Sprintf("Profile '%s' edited.", name))
}

// Status reports the active profile and whether the live file drifted.
func (m *Manager) Status() StatusInfo {
	info := StatusInfo{
		HostsPath: m.hostsPath,
		Drifted:   m.tracker.IsDrifted(),
	}
	rec, ok := m.tracker.Record()
	if !ok {
		return info
	}
	info.Profile = rec.ProfileName()
	info.UpdatedAt = rec.UpdatedAt
	if info.Profile != "" {
		if exists, err := m.profiles.Exists(info.Profile); err == nil && !exists {
			info.ProfileMissing = true
		}
	}
	return info
}

// Backups returns the existing backups, newest first.
func (m *Manager) Backups() ([]backup.Entry, Result) {
	entries, err := m.backups.List()
	if err != nil {
		return nil, failed(fmt.Errorf("%w: %w", domain.ErrIOFailure, err),
			fmt.Sprintf("Error listing backups: %v", err))
	}
	return entries, succeeded("")
}
