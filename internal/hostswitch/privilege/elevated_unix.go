//go:build !windows

package privilege

import "os"

func processElevated() bool {
	return os.Geteuid() == 0
}
