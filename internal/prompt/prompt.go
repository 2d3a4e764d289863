// Package prompt asks the user yes/no questions.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoAnswer is returned when input ends before a y or n was read.
var ErrNoAnswer = errors.New("no answer: input closed")

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(question string) (bool, error) {
	return f(question)
}

// Always answers every question with answer.
func Always(answer bool) Confirmer {
	return ConfirmFunc(func(string) (bool, error) { return answer, nil })
}

// Console asks on out and reads answers from in. Only "y" and "n" are
// accepted; anything else repeats the question.
//
// When in is a terminal the answer is a single key press read in raw
// mode. Otherwise answers are whitespace separated words.
type Console struct {
	in      io.Reader
	out     io.Writer
	scanner *bufio.Scanner
	fd      int
	tty     bool
}

// NewConsole returns a Console reading from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: in, out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
		c.tty = true
	} else {
		c.scanner = bufio.NewScanner(in)
		c.scanner.Split(bufio.ScanWords)
	}
	return c
}

// Confirm prints question and waits for y or n.
func (c *Console) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s\nYes [y], no [n]\n", question)

		answer, err := c.next()
		if err != nil {
			return false, err
		}
		switch answer {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

func (c *Console) next() (string, error) {
	if c.tty {
		return c.key()
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		return "", ErrNoAnswer
	}
	return c.scanner.Text(), nil
}

// key reads one key press with the terminal in raw mode.
func (c *Console) key() (string, error) {
	state, err := term.MakeRaw(c.fd)
	if err != nil {
		return "", fmt.Errorf("terminal raw mode: %w", err)
	}

	var buf [1]byte
	n, readErr := c.in.Read(buf[:])

	if err := term.Restore(c.fd, state); err != nil {
		return "", fmt.Errorf("terminal restore: %w", err)
	}
	if readErr != nil {
		if errors.Is(readErr, io.EOF) {
			return "", ErrNoAnswer
		}
		return "", fmt.Errorf("reading answer: %w", readErr)
	}
	if n == 0 {
		return "", nil
	}

	// Ctrl-C and Ctrl-D are not delivered as signals in raw mode.
	switch buf[0] {
	case 0x03, 0x04:
		fmt.Fprintln(c.out)
		return "", ErrNoAnswer
	}
	fmt.Fprintf(c.out, "%c\n", buf[0])
	return string(buf[:1]), nil
}
