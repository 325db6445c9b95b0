package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Owner is a uid/gid pair that files written under the config root are
// handed to. It is set when running elevated on behalf of another user.
type Owner struct {
	UID int
	GID int
}

// Storage provides low-level file operations with security validations.
type Storage struct {
	fs    afero.Fs
	owner *Owner
}

// New creates a new Storage instance.
func New(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// SetOwner makes subsequent writes through WriteFile, CopyFile and MkdirAll
// chown their result. A nil owner disables it.
func (s *Storage) SetOwner(owner *Owner) {
	s.owner = owner
}

// ValidatePathSafety checks that the path is not a symlink, preventing symlink attacks.
// It returns nil if the path doesn't exist or is a regular file/directory.
func (s *Storage) ValidatePathSafety(path string) error {
	info, err := s.lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // Non-existent paths are safe to write to
		}
		return fmt.Errorf("failed to check path: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to operate on symlink: %s", path)
	}
	return nil
}

// lstat uses Lstat when the filesystem supports it. In-memory filesystems
// don't support symlinks, so Stat is equivalent there.
func (s *Storage) lstat(path string) (os.FileInfo, error) {
	if lstater, ok := s.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return s.fs.Stat(path)
}

// CopyFile copies a file from src to dst, atomically replacing the destination.
// The source may be a symlink (the live hosts file sometimes is); the
// destination may not.
func (s *Storage) CopyFile(src, dst string) (err error) {
	if err := s.ValidatePathSafety(dst); err != nil {
		return fmt.Errorf("validate destination: %w", err)
	}

	source, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	if err := s.MkdirAll(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Create temp file in same directory (enables atomic rename)
	tmp := dst + ".tmp"
	dest, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, copyErr := io.Copy(dest, source)
	closeErr := dest.Close()

	if copyErr != nil || closeErr != nil {
		s.fs.Remove(tmp)
		if copyErr != nil {
			return fmt.Errorf("copy data: %w", copyErr)
		}
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := s.fs.Rename(tmp, dst); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}

	return s.chown(dst)
}

// ReplaceFile overwrites path with data, keeping the existing file mode and,
// on the OS filesystem, its owner.
//
// The write goes to a temporary file next to path that is synced and renamed
// over the target. It is written in place instead when path is a symlink,
// when the target cannot be renamed over (bind-mounted files such as
// /etc/hosts inside containers), and when the directory or the owner change
// is not permitted although the file itself may be writable.
func (s *Storage) ReplaceFile(path string, data []byte) error {
	perm := os.FileMode(0o644)
	info, err := s.lstat(path)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return s.writeInPlace(path, data, perm)
	case err == nil:
		perm = info.Mode().Perm()
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat target: %w", err)
	}

	if _, ok := s.fs.(*afero.OsFs); ok {
		err = replaceOS(path, data, perm)
	} else {
		err = replaceViaRename(s.fs, path, data, perm)
	}
	if err == nil || !(isMountPointRename(err) || errors.Is(err, os.ErrPermission)) {
		return err
	}
	return s.writeInPlace(path, data, perm)
}

func (s *Storage) writeInPlace(path string, data []byte, perm os.FileMode) error {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("write target: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close target: %w", closeErr)
	}
	return nil
}

func replaceViaRename(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// ReadFile reads the entire file.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// WriteFile writes data to a file with secure permissions.
func (s *Storage) WriteFile(path string, data []byte) error {
	if err := afero.WriteFile(s.fs, path, data, 0o600); err != nil {
		return err
	}
	return s.chown(path)
}

// Exists checks if a path exists.
func (s *Storage) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Stat returns file information.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

// MkdirAll creates directory with secure permissions.
func (s *Storage) MkdirAll(path string) error {
	if err := s.fs.MkdirAll(path, 0o700); err != nil {
		return err
	}
	return s.chown(path)
}

// ReadDir reads directory contents.
func (s *Storage) ReadDir(path string) ([]os.FileInfo, error) {
	return afero.ReadDir(s.fs, path)
}

// Remove deletes a file.
func (s *Storage) Remove(path string) error {
	return s.fs.Remove(path)
}

func (s *Storage) chown(path string) error {
	if s.owner == nil {
		return nil
	}
	if err := s.fs.Chown(path, s.owner.UID, s.owner.GID); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}
