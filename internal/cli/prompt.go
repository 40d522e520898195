package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads answers from in and writes questions to out.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal to read secrets from, or -1 to read them as plain lines.
	fd int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &prompter{in: bufio.NewReader(in), out: out, fd: fd}
}

// line asks for a value, returning def when the answer is empty.
func (p *prompter) line(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && input != "") {
		return "", err
	}
	if input = strings.TrimSpace(input); input == "" {
		return def, nil
	}
	return input, nil
}

// required repeats the question until a non-empty answer is given.
func (p *prompter) required(label string, secret bool) (string, error) {
	for {
		var v string
		var err error
		if secret {
			v, err = p.secret(label)
		} else {
			v, err = p.line(label+" (required)", "")
		}
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
		fmt.Fprintln(p.out, "  Error: a value is required")
	}
}

// secret reads a value without echo when attached to a terminal.
func (p *prompter) secret(label string) (string, error) {
	if p.fd < 0 {
		return p.line(label+" (required)", "")
	}
	fmt.Fprintf(p.out, "%s (input hidden): ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// confirm asks a yes/no question, defaulting to no.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question+" [y/N]", "")
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// interactive reports whether stdin is a terminal.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
