package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/manifoldco/promptui"
)

// menuSize is how many entries a selection menu shows before scrolling.
const menuSize = 10

var (
	menuTemplates = &promptui.SelectTemplates{
		Label:    "{{ . | bold }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . }}",
		Selected: "{{ . | faint }}",
	}
	inputTemplates = &promptui.PromptTemplates{
		Prompt:  "{{ . | bold }}: ",
		Valid:   "{{ . | bold }}: ",
		Invalid: "{{ . | red }}: ",
		Success: "{{ . | faint }}: ",
	}
)

// PromptUI is the terminal Prompter. Menus accept "/" to filter profile
// names by substring.
type PromptUI struct {
	in  io.ReadCloser
	out io.WriteCloser
}

// NewPromptUI creates a PromptUI on the process's standard streams.
func NewPromptUI() *PromptUI {
	return NewPromptUIWithIO(nil, nil)
}

// NewPromptUIWithIO creates a PromptUI on in and out. A nil stream means the
// matching standard stream.
func NewPromptUIWithIO(in io.Reader, out io.Writer) *PromptUI {
	pu := &PromptUI{in: os.Stdin, out: os.Stdout}
	if in != nil {
		pu.in = asReadCloser(in)
	}
	if out != nil {
		pu.out = asWriteCloser(out)
	}
	return pu
}

func (p *PromptUI) Select(label string, items []string, defaultValue string) (int, string, error) {
	menu := promptui.Select{
		Label:     label,
		Items:     items,
		Size:      menuSize,
		HideHelp:  true,
		CursorPos: max(slices.Index(items, defaultValue), 0),
		Templates: menuTemplates,
		Searcher:  substringSearcher(items),
		Stdin:     p.in,
		Stdout:    p.out,
	}
	idx, value, err := menu.Run()
	if err != nil {
		return idx, value, cancelled(err)
	}
	return idx, value, nil
}

func (p *PromptUI) Prompt(label string, validate func(string) error) (string, error) {
	input := promptui.Prompt{
		Label:     label,
		Templates: inputTemplates,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	if validate != nil {
		input.Validate = validate
	}
	value, err := input.Run()
	if err != nil {
		return "", cancelled(err)
	}
	return value, nil
}

func (p *PromptUI) Confirm(label string, defaultYes bool) (bool, error) {
	def := "N"
	if defaultYes {
		def = "Y"
	}
	input := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	answer, err := input.Run()
	return confirmAnswer(answer, err, defaultYes)
}

// confirmAnswer turns a confirm prompt outcome into a yes or no. promptui
// reports any answer other than yes as ErrAbort.
func confirmAnswer(answer string, err error, defaultYes bool) (bool, error) {
	switch {
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case err != nil:
		return false, cancelled(err)
	case answer == "":
		return defaultYes, nil
	}
	return strings.EqualFold(answer, "y"), nil
}

// substringSearcher matches menu entries containing the typed text, ignoring
// case.
func substringSearcher(items []string) func(string, int) bool {
	return func(input string, index int) bool {
		return strings.Contains(strings.ToLower(items[index]), strings.ToLower(input))
	}
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %v", ErrPromptCancelled, err)
}

func asReadCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

func asWriteCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return writeNopCloser{w}
}

type writeNopCloser struct {
	io.Writer
}

func (writeNopCloser) Close() error { return nil }
