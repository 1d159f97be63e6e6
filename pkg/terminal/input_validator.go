package terminal

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/antibyte/linebasic/pkg/configuration"
)

// InputValidator prüft Eingabezeilen, bevor sie den Interpreter erreichen
type InputValidator struct {
	maxLength int
}

// NewInputValidator erstellt einen neuen InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxLength: configuration.GetInt("Server", "max_line_length", 256),
	}
}

// Clean trims the line terminator and rejects lines that are too long or
// carry control characters.
func (v *InputValidator) Clean(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) > v.maxLength {
		return "", fmt.Errorf("line too long: maximum %d characters allowed", v.maxLength)
	}
	for _, r := range line {
		if unicode.IsControl(r) && r != '\t' {
			return "", fmt.Errorf("control character %U not allowed", r)
		}
	}
	return line, nil
}
