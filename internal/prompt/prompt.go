// Package prompt gathers connection fields from the user. Secret-flagged
// values are read without echo and are never logged by any caller.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user enters "." to abandon input.
var ErrCancelled = errors.New("prompt: cancelled")

// Prompter collects a single field value.
type Prompter interface {
	// Field prompts with a default; an empty answer keeps the default.
	Field(label, def string) (string, error)

	// Secret prompts without echoing the input.
	Secret(label string) (string, error)
}

// Terminal is the interactive Prompter for stdin/stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Prompter on os.Stdin/os.Stdout.
func NewTerminal() *Terminal {
	return New(os.Stdin, os.Stdout)
}

// New returns a Terminal reading from in and writing prompts to out.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Field(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(t.out, "%s: ", label)
	}
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if line == "." {
		return "", ErrCancelled
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (t *Terminal) Secret(label string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(t.out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		value := strings.TrimSpace(string(raw))
		if value == "." {
			return "", ErrCancelled
		}
		return value, nil
	}
	// Piped input (and tests): fall back to a plain line read.
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if line == "." {
		return "", ErrCancelled
	}
	return line, nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
