package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrAborted is returned by a Prompter when the user closes the input
// (Ctrl+C or Ctrl+D).
var ErrAborted = errors.New("shell: input aborted")

// Prompter reads one answer per call.
type Prompter interface {
	Prompt(label string) (string, error)
	// Password reads without echo where the terminal allows it.
	Password(label string) (string, error)
	Close() error
}

// NewPrompter returns a line-editing prompter on an interactive terminal and
// a plain line reader otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return newLinePrompter()
	}
	return NewPlainPrompter(in, out)
}

type linePrompter struct {
	line *liner.State
}

func newLinePrompter() *linePrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &linePrompter{line: line}
}

func (p *linePrompter) Prompt(label string) (string, error) {
	input, err := p.line.Prompt(label)
	if err != nil {
		return "", mapLinerErr(err)
	}
	return strings.TrimSpace(input), nil
}

func (p *linePrompter) Password(label string) (string, error) {
	input, err := p.line.PasswordPrompt(label)
	if err != nil {
		return "", mapLinerErr(err)
	}
	return input, nil
}

func (p *linePrompter) Close() error { return p.line.Close() }

func mapLinerErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return ErrAborted
	}
	return err
}

// PlainPrompter reads newline terminated answers from any reader. Passwords
// are echoed; it is meant for pipes and tests.
type PlainPrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPlainPrompter(in io.Reader, out io.Writer) *PlainPrompter {
	return &PlainPrompter{in: bufio.NewScanner(in), out: out}
}

func (p *PlainPrompter) Prompt(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrAborted
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *PlainPrompter) Password(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrAborted
	}
	return strings.TrimRight(p.in.Text(), "\r"), nil
}

func (p *PlainPrompter) Close() error { return nil }
