//go:build !windows

package storage

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/renameio/v2"
)

// replaceOS writes data to a renameio pending file next to path, gives it
// perm and the owner of the file being replaced, fsyncs it and renames it
// over the target.
func replaceOS(path string, data []byte, perm os.FileMode) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithStaticPermissions(perm))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer pending.Cleanup()

	if info, err := os.Stat(path); err == nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			if err := pending.Chown(int(st.Uid), int(st.Gid)); err != nil {
				return fmt.Errorf("chown temp file: %w", err)
			}
		}
	}
	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// isMountPointRename reports whether a rename failed because the target is a
// mount point or lives on another device than its directory.
func isMountPointRename(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV)
}
