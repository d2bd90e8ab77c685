package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize bounds one line of user input, in bytes.
const DefaultMaxInputSize = 4096

// EnvMaxInputSize overrides DefaultMaxInputSize.
const EnvMaxInputSize = "DATAGPT_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput rejects oversized or non UTF-8 input and strips control
// characters other than tab, newline and carriage return, so escape codes
// never reach logs, stage payloads or the terminal.
func SanitizeInput(input string) (string, error) {
	if limit := maxInputSize(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, input), nil
}

// SanitizeMap applies SanitizeInput to every string in input, descending
// into nested lists and objects. Strings are replaced in place.
func SanitizeMap(input map[string]any) error {
	for k, v := range input {
		clean, err := sanitizeValue(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		input[k] = clean
	}
	return nil
}

func sanitizeValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return SanitizeInput(t)
	case []any:
		for i, e := range t {
			clean, err := sanitizeValue(e)
			if err != nil {
				return nil, err
			}
			t[i] = clean
		}
	case map[string]any:
		if err := SanitizeMap(t); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func maxInputSize() int {
	if n, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && n > 0 {
		return n
	}
	return DefaultMaxInputSize
}
