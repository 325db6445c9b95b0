package privilege

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/OpenGG/hostswitch/internal/hostswitch/domain"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
)

// DefaultHelper is the elevation helper used when none is configured.
const DefaultHelper = "sudo"

// Result is the outcome of a re-run under elevation.
type Result struct {
	Success bool
	Message string
	Err     error
	// Ran is set when the child started and exited, whatever its exit
	// code. The child has then reported its own outcome on the shared
	// streams.
	Ran bool
}

// Options configures a Gate. Zero values select the process defaults.
type Options struct {
	// Helper is the elevation command, e.g. "sudo" or "doas".
	Helper string
	// SkipElevation disables elevation entirely, for users who own the
	// live file themselves.
	SkipElevation bool

	Runner     Runner
	Getenv     func(string) string
	Elevated   func() bool
	LookPath   func(string) (string, error)
	Executable func() (string, error)
	Logger     *slog.Logger
}

// Gate decides whether writing the live file needs elevated privileges and
// re-runs the current command under an elevation helper when it does.
type Gate struct {
	helper     string
	skip       bool
	runner     Runner
	getenv     func(string) string
	elevated   func() bool
	lookPath   func(string) (string, error)
	executable func() (string, error)
	logger     *slog.Logger
}

// New creates a Gate.
func New(opts Options) *Gate {
	g := &Gate{
		helper:     strings.TrimSpace(opts.Helper),
		skip:       opts.SkipElevation,
		runner:     opts.Runner,
		getenv:     opts.Getenv,
		elevated:   opts.Elevated,
		lookPath:   opts.LookPath,
		executable: opts.Executable,
		logger:     opts.Logger,
	}
	if g.helper == "" {
		g.helper = DefaultHelper
	}
	if g.runner == nil {
		g.runner = ExecRunner{}
	}
	if g.getenv == nil {
		g.getenv = os.Getenv
	}
	if g.elevated == nil {
		g.elevated = processElevated
	}
	if g.lookPath == nil {
		g.lookPath = exec.LookPath
	}
	if g.executable == nil {
		g.executable = os.Executable
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g
}

// Helper returns the configured elevation helper.
func (g *Gate) Helper() string {
	return g.helper
}

// IsElevated reports whether the process already runs with elevated
// privileges, either as root or under sudo.
func (g *Gate) IsElevated() bool {
	return g.elevated() || g.getenv("SUDO_USER") != ""
}

// RequiresElevation reports whether writing target needs a re-run under the
// elevation helper. No permission probing is done: unless elevation is
// disabled, any unelevated process is assumed to lack write access.
func (g *Gate) RequiresElevation(target string) bool {
	if g.skip {
		return false
	}
	required := !g.IsElevated()
	g.logger.Debug("elevation check",
		"target", target,
		"required", required)
	return required
}

// Owner returns the invoking user's uid and gid when the process runs under
// sudo, so files in that user's config root can be handed back to them.
func (g *Gate) Owner() *storage.Owner {
	uid, err := strconv.Atoi(strings.TrimSpace(g.getenv("SUDO_UID")))
	if err != nil {
		return nil
	}
	gid, err := strconv.Atoi(strings.TrimSpace(g.getenv("SUDO_GID")))
	if err != nil {
		return nil
	}
	return &storage.Owner{UID: uid, GID: gid}
}

// ElevateAndRerun runs the current executable with args under the elevation
// helper, sharing this process's standard streams, and waits for it.
func (g *Gate) ElevateAndRerun(ctx context.Context, args []string) Result {
	helperPath, err := g.lookPath(g.helper)
	if err != nil {
		return g.failed(err)
	}
	self, err := g.executable()
	if err != nil {
		return g.failed(fmt.Errorf("locate executable: %w", err))
	}

	g.logger.Info("re-running with elevated privileges",
		"helper", helperPath,
		"args", args)

	code, err := g.runner.Run(ctx, Command{
		Path: helperPath,
		Args: append([]string{self}, args...),
	})
	if err != nil {
		return g.failed(err)
	}
	if code != 0 {
		g.logger.Info("elevated command failed", "exit_code", code)
		return Result{
			Message: fmt.Sprintf("Operation failed with elevated privileges (exit code %d).", code),
			Err:     fmt.Errorf("%w: exit code %d", domain.ErrElevationFailed, code),
			Ran:     true,
		}
	}
	return Result{Success: true, Message: "Operation completed successfully.", Ran: true}
}

func (g *Gate) failed(err error) Result {
	g.logger.Warn("elevation failed", "helper", g.helper, "error", err)
	return Result{
		Message: fmt.Sprintf("Failed to execute %s: %v", g.helper, err),
		Err:     fmt.Errorf("%w: %w", domain.ErrElevationFailed, err),
	}
}
