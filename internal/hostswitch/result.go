package hostswitch

import "time"

// Result is the outcome of a Manager operation. Failures carry the wrapped
// domain error in Err so callers can use errors.Is.
type Result struct {
	Success bool
	Message string
	Err     error

	// BackupPath is set when a switch backed up the live file first.
	BackupPath string
	// Warning is an informational note, e.g. that the live file drifted.
	Warning string
	// RequiresSudo is set when the live file write was rejected by the OS.
	RequiresSudo bool
	// RequiresConfirmation is set when a destructive operation needs the
	// caller to confirm and retry.
	RequiresConfirmation bool
	// Delegated is set when the operation ran in an elevated child process,
	// which has already reported its own outcome, success or failure.
	Delegated bool
}

func succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

func failed(err error, message string) Result {
	return Result{Message: message, Err: err}
}

// ProfileInfo is a profile name annotated with whether it is active.
type ProfileInfo struct {
	Name      string
	IsCurrent bool
}

// StatusInfo describes the active profile and the live file.
type StatusInfo struct {
	// Profile is the active profile, or "" when none is recorded.
	Profile string
	// ProfileMissing is set when the active profile's file no longer exists.
	ProfileMissing bool
	Drifted        bool
	UpdatedAt      time.Time
	HostsPath      string
}
