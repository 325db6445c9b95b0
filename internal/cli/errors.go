package cli

import "errors"

// ErrPromptCancelled indicates that the user aborted an interactive prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// ErrFailed marks a command whose failure was already reported to the user.
var ErrFailed = errors.New("command failed")

// ErrNameRequired is returned when a profile name is needed but none was
// given and no terminal is available to ask for one.
var ErrNameRequired = errors.New("profile name required")
