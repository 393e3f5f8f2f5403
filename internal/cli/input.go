package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// prompter reads answers to prompts. Secrets are read without echo when the
// input is a terminal.
type prompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	hidden bool
}

func newPrompter(in io.Reader, out io.Writer, fd int) *prompter {
	return &prompter{
		reader: bufio.NewReader(in),
		out:    out,
		fd:     fd,
		hidden: fd >= 0 && isTerminal(fd),
	}
}

// Line prints prompt and reads one trimmed line. If EOF occurs after some
// input was read, the partial line is returned.
func (p *prompter) Line(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret prints prompt and reads a password. Only the line ending is
// stripped, spaces are part of the password.
func (p *prompter) Secret(prompt string) (string, error) {
	if !p.hidden {
		if _, err := fmt.Fprint(p.out, prompt); err != nil {
			return "", err
		}
		line, err := p.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
