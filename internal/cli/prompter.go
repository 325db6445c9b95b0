package cli

// Prompter asks the user for input. Interactive commands depend on it so
// tests can script the answers.
type Prompter interface {
	// Select shows items and returns the chosen index and value. The cursor
	// starts on defaultValue when present.
	Select(label string, items []string, defaultValue string) (int, string, error)
	// Prompt reads a line of text. validate, when non-nil, rejects input
	// before it is returned.
	Prompt(label string, validate func(string) error) (string, error)
	Confirm(label string, defaultYes bool) (bool, error)
}
