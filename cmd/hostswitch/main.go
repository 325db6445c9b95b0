package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/OpenGG/hostswitch/internal/cli"
	"github.com/OpenGG/hostswitch/internal/config"
	"github.com/OpenGG/hostswitch/internal/hostswitch"
	"github.com/OpenGG/hostswitch/internal/hostswitch/editor"
	"github.com/OpenGG/hostswitch/internal/hostswitch/paths"
	"github.com/OpenGG/hostswitch/internal/hostswitch/privilege"
	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
	"github.com/OpenGG/hostswitch/internal/logging"
	"github.com/OpenGG/hostswitch/internal/update"
	"github.com/OpenGG/hostswitch/internal/version"
)

var exitFunc = os.Exit

// environment is everything the program takes from the process.
type environment struct {
	fs          afero.Fs
	stdout      io.Writer
	stderr      io.Writer
	getenv      func(string) string
	homeDir     func() (string, error)
	prompter    cli.Prompter
	interactive bool
	color       bool
	// elevated overrides the process privilege check when set.
	elevated func() bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	env := environment{
		fs:          afero.NewOsFs(),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		getenv:      os.Getenv,
		homeDir:     os.UserHomeDir,
		prompter:    cli.NewPromptUI(),
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && stdoutTTY,
		color:       stdoutTTY && os.Getenv("NO_COLOR") == "",
	}

	if err := execute(ctx, os.Args[1:], env); err != nil {
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		exitFunc(1)
	}
}

func execute(ctx context.Context, args []string, env environment) error {
	root := cli.NewRootCommand(cli.Options{
		Bootstrap: func(g cli.GlobalOptions) (*cli.Session, error) {
			return bootstrap(env, g)
		},
		Prompter:    env.prompter,
		Stdout:      env.stdout,
		Stderr:      env.stderr,
		Interactive: env.interactive,
		Color:       env.color,
	})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// bootstrap resolves configuration in order of precedence (flags, then
// environment, then config.toml, then defaults) and wires the Manager.
func bootstrap(env environment, g cli.GlobalOptions) (*cli.Session, error) {
	rootDir := g.ConfigDir
	if rootDir == "" {
		home, err := env.homeDir()
		if err != nil && env.getenv(config.EnvHome) == "" {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		rootDir = config.Root(home, env.getenv)
	}
	pb := paths.New(rootDir)

	cfg, err := config.Load(env.fs, pb.ConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env.getenv)

	level, levelErr := logging.ParseLevel(cfg.LogLevel)
	if g.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(env.stderr, level, logging.NewOpID())
	if levelErr != nil {
		logger.Warn("using default log level", "error", levelErr)
	}
	if len(cfg.Unknown) > 0 {
		logger.Warn("ignoring unknown config keys", "path", pb.ConfigPath(), "keys", cfg.Unknown)
	}

	hostsPath, overridden := g.HostsFile, true
	if hostsPath == "" {
		hostsPath = cfg.HostsPath
	}
	if hostsPath == "" {
		hostsPath, overridden = paths.HostsPath(runtime.GOOS, env.getenv), false
	}

	gate := privilege.New(privilege.Options{
		Helper:        cfg.ElevationCommand,
		SkipElevation: !cfg.RequireElevation,
		Getenv:        env.getenv,
		Elevated:      env.elevated,
		Logger:        logger,
	})
	elevated := gate.IsElevated()

	// Files created under sudo are handed back to the invoking user.
	var owner *storage.Owner
	if elevated {
		owner = gate.Owner()
	}

	var elevatedArgs []string
	if g.Verbose {
		elevatedArgs = append(elevatedArgs, "--verbose")
	}

	mgr := hostswitch.NewManager(env.fs, hostswitch.Options{
		Root:            rootDir,
		HostsPath:       hostsPath,
		HostsOverridden: overridden,
		Owner:           owner,
		ElevatedArgs:    elevatedArgs,
		Elevator:        gate,
		Editor:          editor.New(cfg.Editor, nil),
		Logger:          logger,
	})
	if err := mgr.InitInfra(); err != nil {
		return nil, err
	}

	store := storage.New(env.fs)
	store.SetOwner(owner)
	if written, err := config.WriteDefault(store, pb.ConfigPath()); err != nil {
		logger.Warn("could not write default config", "error", err)
	} else if written {
		logger.Info("wrote default config", "path", pb.ConfigPath())
	}

	session := &cli.Session{Manager: mgr, Logger: logger}
	if cfg.UpdateCheck && !elevated {
		session.Updates = update.New(store, pb.UpdateStatePath(), cfg.UpdateURL, version.GetInfo().Version, logger)
	}
	logger.Debug("bootstrapped",
		"root", rootDir,
		"hosts_path", hostsPath,
		"elevated", elevated)
	return session, nil
}
