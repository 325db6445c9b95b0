package validator

import (
	"regexp"
	"strings"

	"github.com/OpenGG/hostswitch/internal/hostswitch/domain"
)

// MaxNameLength bounds profile names so the resulting file name stays portable.
const MaxNameLength = 64

var (
	reservedNamePattern = regexp.MustCompile(`^(?i)(con|prn|aux|nul|com[1-9]|lpt[1-9])$`)
	allowedNamePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Validator validates profile names before they reach the profile store.
type Validator struct{}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{}
}

// ValidateName validates a profile name.
//
// The function checks for:
//   - Empty names or whitespace-only names
//   - Names longer than MaxNameLength
//   - Characters outside letters, digits, hyphen and underscore
//   - Reserved Windows filenames (CON, PRN, AUX, NUL, COM1-9, LPT1-9)
//
// Returns (true, nil) if valid, or (false, error) with an error wrapping
// domain.ErrInvalidName.
func (v *Validator) ValidateName(name string) (bool, error) {
	if len(strings.TrimSpace(name)) == 0 {
		return false, domain.ErrProfileNameEmpty
	}
	if len(name) > MaxNameLength {
		return false, domain.ErrProfileNameTooLong
	}
	if !allowedNamePattern.MatchString(name) {
		return false, domain.ErrProfileNameInvalidChars
	}
	if reservedNamePattern.MatchString(name) {
		return false, domain.ErrProfileNameReserved
	}
	return true, nil
}

// NormalizeName trims surrounding whitespace and validates the result.
func (v *Validator) NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if ok, err := v.ValidateName(trimmed); !ok {
		return "", err
	}
	return trimmed, nil
}
