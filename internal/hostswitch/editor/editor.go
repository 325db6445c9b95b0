package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/OpenGG/hostswitch/internal/hostswitch/privilege"
)

// Launcher opens files in the user's editor and waits for it to exit.
type Launcher struct {
	configured string
	goos       string
	getenv     func(string) string
	lookPath   func(string) (string, error)
	runner     privilege.Runner
}

// New creates a Launcher. configured is the editor from the config file and
// takes precedence over the environment. A nil runner uses os/exec.
func New(configured string, runner privilege.Runner) *Launcher {
	if runner == nil {
		runner = privilege.ExecRunner{}
	}
	return &Launcher{
		configured: configured,
		goos:       runtime.GOOS,
		getenv:     os.Getenv,
		lookPath:   exec.LookPath,
		runner:     runner,
	}
}

// Resolve returns the editor command line: the configured editor, then
// $VISUAL, then $EDITOR, then the platform default.
func (l *Launcher) Resolve() []string {
	for _, candidate := range []string{l.configured, l.getenv("VISUAL"), l.getenv("EDITOR")} {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			return fields
		}
	}
	if l.goos == "windows" {
		return []string{"notepad"}
	}
	return []string{"vi"}
}

// Open launches the editor on path and blocks until it exits.
func (l *Launcher) Open(ctx context.Context, path string) error {
	argv := l.Resolve()
	bin, err := l.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("editor %q: %w", argv[0], err)
	}
	args := append(append([]string{}, argv[1:]...), path)
	code, err := l.runner.Run(ctx, privilege.Command{Path: bin, Args: args})
	if err != nil {
		return fmt.Errorf("run editor %q: %w", argv[0], err)
	}
	if code != 0 {
		return fmt.Errorf("editor %q exited with code %d", argv[0], code)
	}
	return nil
}
