package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/OpenGG/hostswitch/internal/hostswitch/paths"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

// timestampLayout mirrors an ISO-8601 UTC timestamp with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// maxCollisions bounds the suffix search when several backups share a timestamp.
const maxCollisions = 1000

// Entry describes a backup file on disk.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Service snapshots the live hosts file into the backup directory.
type Service struct {
	storage   *storage.Storage
	backupDir string
	hostsPath string
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new backup Service.
func New(storage *storage.Storage, backupDir, hostsPath string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		storage:   storage,
		backupDir: backupDir,
		hostsPath: hostsPath,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow allows overriding the clock for testing.
func (s *Service) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// FileName returns the backup file name for a point in time, e.g.
// hosts_2024-05-01T10-20-30-123Z. Characters that are unsafe in file names
// on some platforms (':' and '.') are replaced with '-'.
func FileName(t time.Time) string {
	stamp := t.UTC().Format(timestampLayout)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return paths.BackupPrefix + stamp
}

// Backup copies the live hosts file into a new, never-overwritten backup
// file and returns its path.
//
// Backups are best effort: any failure is logged and reported as ok=false,
// never as an error, so a failed backup cannot block a switch.
func (s *Service) Backup() (path string, ok bool) {
	if _, err := s.storage.Stat(s.hostsPath); err != nil {
		s.logger.Warn("skipping backup, live file unreadable",
			"path", s.hostsPath,
			"error", err)
		return "", false
	}
	if err := s.storage.MkdirAll(s.backupDir); err != nil {
		s.logger.Warn("skipping backup, cannot create backup directory",
			"backup_dir", s.backupDir,
			"error", err)
		return "", false
	}

	target, err := s.freePath(FileName(s.now()))
	if err != nil {
		s.logger.Warn("skipping backup",
			"backup_dir", s.backupDir,
			"error", err)
		return "", false
	}

	if err := s.storage.CopyFile(s.hostsPath, target); err != nil {
		s.logger.Warn("backup failed",
			"path", s.hostsPath,
			"backup_path", target,
			"error", err)
		return "", false
	}

	s.logger.Info("backup created",
		"path", s.hostsPath,
		"backup_path", target)
	return target, true
}

// freePath returns a path in the backup directory for base that does not
// exist yet, appending _1, _2, ... on collision.
func (s *Service) freePath(base string) (string, error) {
	for i := 0; i < maxCollisions; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		candidate := filepath.Join(s.backupDir, name)
		exists, err := s.storage.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check backup path: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free backup name for %s", base)
}

// List returns the existing backups, newest first.
func (s *Service) List() ([]Entry, error) {
	infos, err := s.storage.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.HasPrefix(info.Name(), paths.BackupPrefix) || strings.HasSuffix(info.Name(), ".tmp") {
			continue
		}
		entries = append(entries, Entry{
			Name:    info.Name(),
			Path:    filepath.Join(s.backupDir, info.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	// Names embed the timestamp, so reverse lexical order is newest first.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name > entries[j].Name })
	return entries, nil
}
