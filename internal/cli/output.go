package cli

import (
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/OpenGG/hostswitch/internal/hostswitch"
)

var (
	styleSuccess = promptui.Styler(promptui.FGGreen)
	styleWarning = promptui.Styler(promptui.FGYellow)
	styleError   = promptui.Styler(promptui.FGRed)
	styleFaint   = promptui.Styler(promptui.FGFaint)
	styleBold    = promptui.Styler(promptui.FGBold)
)

// Printer writes user-facing messages. Errors go to stderr, everything else
// to stdout. Colour is applied only when enabled.
type Printer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

// NewPrinter creates a Printer.
func NewPrinter(stdout, stderr io.Writer, color bool) *Printer {
	return &Printer{out: stdout, err: stderr, color: color}
}

func (p *Printer) style(fn func(interface{}) string, msg string) string {
	if !p.color {
		return msg
	}
	return fn(msg)
}

// Out returns the writer for regular output.
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, p.style(styleSuccess, msg))
}

func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.out, p.style(styleWarning, msg))
}

func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.err, p.style(styleError, msg))
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.out, msg)
}

func (p *Printer) Faint(msg string) {
	fmt.Fprintln(p.out, p.style(styleFaint, msg))
}

func (p *Printer) Bold(msg string) {
	fmt.Fprintln(p.out, p.style(styleBold, msg))
}

// Report prints a Manager result and returns ErrFailed when it failed, so
// the process exits non-zero without printing the message twice.
func (p *Printer) Report(res hostswitch.Result) error {
	if res.Delegated {
		// The elevated child already printed its own outcome.
		if res.Success {
			return nil
		}
		return ErrFailed
	}
	if res.Warning != "" {
		p.Warning("Warning: " + res.Warning)
	}
	if res.BackupPath != "" {
		p.Faint("Backup saved to " + res.BackupPath)
	}
	if !res.Success {
		p.Error(res.Message)
		return ErrFailed
	}
	p.Success(res.Message)
	return nil
}
