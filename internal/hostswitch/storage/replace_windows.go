//go:build windows

package storage

import (
	"os"

	"github.com/spf13/afero"
)

// renameio does not support Windows; os.Rename maps to MoveFileEx with
// MOVEFILE_REPLACE_EXISTING there, which is as close to atomic as it gets.
func replaceOS(path string, data []byte, perm os.FileMode) error {
	return replaceViaRename(afero.NewOsFs(), path, data, perm)
}

func isMountPointRename(error) bool { return false }
