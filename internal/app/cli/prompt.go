package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword reads without echo. Tests replace it.
var readPassword = func() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoTerminal
	}
	return term.ReadPassword(fd)
}

var errNoTerminal = errors.New("stdin is not a terminal")

// ask prints prompt and reads one trimmed line.
func (e *env) ask(prompt string) (string, error) {
	fmt.Fprint(e.out, prompt+": ")
	line, err := e.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askPassword reads a password from the terminal, or a line from stdin when
// it is not a terminal (for scripted use).
func (e *env) askPassword(prompt string) (string, error) {
	fmt.Fprint(e.out, prompt+": ")
	pw, err := readPassword()
	fmt.Fprintln(e.out)
	if errors.Is(err, errNoTerminal) {
		line, rerr := e.in.ReadString('\n')
		if rerr != nil && !(errors.Is(rerr, io.EOF) && line != "") {
			return "", rerr
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// valueOr returns v, or asks for it when empty.
func (e *env) valueOr(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return e.ask(prompt)
}
