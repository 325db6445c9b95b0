package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenGG/hostswitch/internal/hostswitch"
	"github.com/OpenGG/hostswitch/internal/logging"
	"github.com/OpenGG/hostswitch/internal/update"
	"github.com/OpenGG/hostswitch/internal/version"
)

// updateTimeout bounds the release lookup done after a command.
const updateTimeout = 2 * time.Second

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigDir string
	HostsFile string
	Verbose   bool
}

// UpdateChecker reports whether a newer release exists.
type UpdateChecker interface {
	Check(ctx context.Context, force bool) (update.Notice, error)
}

// Session is what a command needs once the global flags are known.
type Session struct {
	Manager *hostswitch.Manager
	// Updates is nil when update checks are disabled.
	Updates UpdateChecker
	Logger  *slog.Logger
}

// Bootstrap builds a Session from the parsed global flags.
type Bootstrap func(opts GlobalOptions) (*Session, error)

// Options configures the root command.
type Options struct {
	Bootstrap Bootstrap
	Prompter  Prompter
	Stdout    io.Writer
	Stderr    io.Writer
	// Interactive is set when stdin is a terminal.
	Interactive bool
	// Color enables styled output.
	Color bool
}

// app carries the state shared by the commands of one invocation.
type app struct {
	opts     Options
	global   GlobalOptions
	session  *Session
	printer  *Printer
	prompter Prompter
}

func (a *app) manager() *hostswitch.Manager {
	return a.session.Manager
}

func (a *app) logger() *slog.Logger {
	if a.session == nil || a.session.Logger == nil {
		return logging.Discard()
	}
	return a.session.Logger
}

// NewRootCommand constructs the root Cobra command for hostswitch.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{
		opts:     opts,
		printer:  NewPrinter(opts.Stdout, opts.Stderr, opts.Color),
		prompter: opts.Prompter,
	}

	cmd := &cobra.Command{
		Use:   "hostswitch",
		Short: "Switch between hosts file profiles",
		Long: "hostswitch keeps named profiles of the system hosts file and switches between them,\n" +
			"backing up the live file whenever it was changed outside of hostswitch.\n\n" +
			"Run without arguments in a terminal for an interactive menu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			session, err := opts.Bootstrap(a.global)
			if err != nil {
				return err
			}
			a.session = session
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cmd.Name() == "version" {
				return
			}
			a.notifyUpdate(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Interactive {
				return cmd.Help()
			}
			return a.runInteractive(cmd.Context())
		},
	}

	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.global.ConfigDir, "config-dir", "", "Directory holding profiles, backups and state (default ~/.hostswitch)")
	flags.StringVar(&a.global.HostsFile, "hosts-file", "", "Path of the live hosts file")
	flags.BoolVarP(&a.global.Verbose, "verbose", "v", false, "Log what hostswitch is doing to stderr")

	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newCreateCommand(a))
	cmd.AddCommand(newSwitchCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newShowCommand(a))
	cmd.AddCommand(newEditCommand(a))
	cmd.AddCommand(newStatusCommand(a))
	cmd.AddCommand(newBackupsCommand(a))
	cmd.AddCommand(newVersionCommand(a))

	return cmd
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List profiles, marking the active one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printProfiles()
		},
	}
}

func (a *app) printProfiles() error {
	infos, res := a.manager().ListProfiles()
	if !res.Success {
		return a.printer.Report(res)
	}
	if len(infos) == 0 {
		a.printer.Info("No profiles found. Create one with 'hostswitch create <name>'.")
		return nil
	}
	a.printer.Bold("Available profiles:")
	for _, info := range infos {
		if info.IsCurrent {
			a.printer.Success(fmt.Sprintf("* %s (current)", info.Name))
			continue
		}
		a.printer.Info("  " + info.Name)
	}
	return nil
}

func newCreateCommand(a *app) *cobra.Command {
	var fromCurrent bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile from the default template or the current hosts file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.profileArg(args, "", "")
			if err != nil {
				return err
			}
			return a.printer.Report(a.manager().CreateProfile(name, fromCurrent))
		},
	}
	cmd.Flags().BoolVarP(&fromCurrent, "from-current", "c", false, "Copy the current hosts file instead of the default template")
	return cmd
}

func newSwitchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "switch [name]",
		Aliases: []string{"use"},
		Short:   "Make a profile the live hosts file",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.profileArg(args, "Select profile to switch to", a.manager().ActiveProfile())
			if err != nil {
				return err
			}
			return a.printer.Report(a.manager().SwitchProfile(cmd.Context(), name))
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete [name]",
		Aliases: []string{"rm"},
		Short:   "Delete an inactive profile",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.profileArg(args, "Select profile to delete", "")
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return a.deleteWithConfirm(name)
			}
			// A name given on the command line is deleted without asking.
			a.logger().Debug("deleting profile", "profile", name, "force", force)
			return a.printer.Report(a.manager().DeleteProfile(name, true))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show [name]",
		Aliases: []string{"cat"},
		Short:   "Print a profile's content",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.profileArg(args, "Select profile to show", a.manager().ActiveProfile())
			if err != nil {
				return err
			}
			return a.showProfile(name)
		},
	}
}

func (a *app) showProfile(name string) error {
	res, content := a.manager().ProfileContent(name)
	if !res.Success {
		return a.printer.Report(res)
	}
	_, err := a.printer.Out().Write(content)
	return err
}

func newEditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [name]",
		Short: "Open a profile in your editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.profileArg(args, "Select profile to edit", a.manager().ActiveProfile())
			if err != nil {
				return err
			}
			return a.printer.Report(a.manager().EditProfile(cmd.Context(), name))
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active profile and whether the hosts file changed since",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.manager().Status()
			a.printer.Info("Hosts file: " + st.HostsPath)
			if st.Profile == "" {
				a.printer.Warning("No profile active.")
				return nil
			}
			a.printer.Info(fmt.Sprintf("Last switch: %s", st.UpdatedAt.Local().Format(time.RFC1123)))
			if st.ProfileMissing {
				a.printer.Warning(fmt.Sprintf("Active profile '%s' no longer exists.", st.Profile))
			}
			if st.Drifted {
				a.printer.Warning(fmt.Sprintf("Active profile: %s (hosts file modified outside of hostswitch)", st.Profile))
				return nil
			}
			a.printer.Success("Active profile: " + st.Profile)
			return nil
		},
	}
}

func newBackupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups of the hosts file, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, res := a.manager().Backups()
			if !res.Success {
				return a.printer.Report(res)
			}
			if len(entries) == 0 {
				a.printer.Info("No backups yet.")
				return nil
			}
			for _, e := range entries {
				a.printer.Info(fmt.Sprintf("%s  %8d bytes  %s", e.Path, e.Size, e.ModTime.Local().Format(time.DateTime)))
			}
			return nil
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printer.Info(version.GetInfo().String())
			if !check {
				return nil
			}
			if a.session.Updates == nil {
				a.printer.Warning("Update checks are disabled.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			notice, err := a.session.Updates.Check(ctx, true)
			if err != nil {
				a.printer.Error(fmt.Sprintf("Update check failed: %v", err))
				return ErrFailed
			}
			if notice.Available {
				a.printUpdate(notice)
				return nil
			}
			a.printer.Success("hostswitch is up to date.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	return cmd
}

func (a *app) notifyUpdate(ctx context.Context) {
	if a.session == nil || a.session.Updates == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()
	notice, err := a.session.Updates.Check(ctx, false)
	if err != nil {
		a.logger().Debug("update check failed", "error", err)
		return
	}
	if notice.Available {
		a.printUpdate(notice)
	}
}

func (a *app) printUpdate(n update.Notice) {
	a.printer.Warning(fmt.Sprintf("Update available: %s -> %s", n.Current, n.Latest))
	a.printer.Faint("Run: go install github.com/OpenGG/hostswitch/cmd/hostswitch@latest")
}

// profileArg returns the profile named on the command line with surrounding
// whitespace removed, or asks for one when running in a terminal.
func (a *app) profileArg(args []string, label, defaultValue string) (string, error) {
	if len(args) > 0 {
		name, res := a.manager().NormalizeName(args[0])
		if !res.Success {
			return "", a.printer.Report(res)
		}
		return name, nil
	}
	if !a.opts.Interactive || a.prompter == nil {
		return "", ErrNameRequired
	}
	infos, res := a.manager().ListProfiles()
	if !res.Success {
		return "", a.printer.Report(res)
	}
	if len(infos) == 0 {
		return "", errors.New("no profiles found, create one with 'hostswitch create <name>'")
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	names = reorderWithDefault(names, defaultValue)
	_, selected, err := a.prompter.Select(label, names, defaultValue)
	if err != nil {
		return "", err
	}
	return selected, nil
}

// reorderWithDefault moves the default value to the front of the list.
// If defaultValue is empty or not found, or already first, returns items unchanged.
func reorderWithDefault(items []string, defaultValue string) []string {
	if defaultValue == "" {
		return items
	}

	// Find the index of the default value
	idx := -1
	for i, item := range items {
		if item == defaultValue {
			idx = i
			break
		}
	}

	// If not found or already at position 0, return unchanged
	if idx <= 0 {
		return items
	}

	// Build reordered list: [defaultValue, items before idx, items after idx]
	reordered := make([]string, 0, len(items))
	reordered = append(reordered, defaultValue)
	reordered = append(reordered, items[:idx]...)
	reordered = append(reordered, items[idx+1:]...)

	return reordered
}
