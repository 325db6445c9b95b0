package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

// Record is the persisted active-profile record. Nil fields are written as
// JSON null.
type Record struct {
	Profile   *string   `json:"profile"`
	Checksum  *string   `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileName returns the recorded profile name, or "" when none is set.
func (r Record) ProfileName() string {
	if r.Profile == nil {
		return ""
	}
	return *r.Profile
}

// Tracker persists which profile is active together with a checksum of the
// live hosts file taken when it was activated.
type Tracker struct {
	storage   *storage.Storage
	statePath string
	hostsPath string
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new Tracker.
func New(storage *storage.Storage, statePath, hostsPath string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		storage:   storage,
		statePath: statePath,
		hostsPath: hostsPath,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow allows overriding the clock for testing.
func (t *Tracker) SetNow(now func() time.Time) {
	if now == nil {
		t.now = time.Now
		return
	}
	t.now = now
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LiveChecksum returns the checksum of the live hosts file.
func (t *Tracker) LiveChecksum() (string, error) {
	data, err := t.storage.ReadFile(t.hostsPath)
	if err != nil {
		return "", err
	}
	return Checksum(data), nil
}

// Record returns the persisted record. ok is false when the record is
// missing or cannot be parsed.
func (t *Tracker) Record() (rec Record, ok bool) {
	data, err := t.storage.ReadFile(t.statePath)
	if err != nil {
		return Record{}, false
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.logger.Debug("ignoring unreadable state record",
			"path", t.statePath,
			"error", err)
		return Record{}, false
	}
	return rec, true
}

// Active returns the active profile name, or "" when there is none. Read
// and parse failures count as no active profile.
func (t *Tracker) Active() string {
	rec, ok := t.Record()
	if !ok {
		return ""
	}
	return rec.ProfileName()
}

// SetActive records name as the active profile along with the live file's
// current checksum. An unreadable live file records a null checksum.
func (t *Tracker) SetActive(name string) error {
	rec := Record{
		Profile:   &name,
		UpdatedAt: t.now().UTC(),
	}
	if sum, err := t.LiveChecksum(); err != nil {
		t.logger.Warn("live file unreadable, recording without checksum",
			"path", t.hostsPath,
			"error", err)
	} else {
		rec.Checksum = &sum
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state record: %w", err)
	}
	if err := t.storage.MkdirAll(filepath.Dir(t.statePath)); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := t.storage.WriteFile(t.statePath, append(data, '\n')); err != nil {
		return fmt.Errorf("write state record: %w", err)
	}

	t.logger.Debug("active profile recorded",
		"profile", name,
		"checksum", rec.Checksum != nil)
	return nil
}

// IsDrifted reports whether the live file may have changed since the last
// switch. It is false only when a record with a checksum exists and matches
// the live file.
func (t *Tracker) IsDrifted() bool {
	rec, ok := t.Record()
	if !ok || rec.Checksum == nil || *rec.Checksum == "" {
		return true
	}
	current, err := t.LiveChecksum()
	if err != nil {
		return true
	}
	return current != *rec.Checksum
}
