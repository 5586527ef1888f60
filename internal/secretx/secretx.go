// Package secretx supplies master secrets for exactly one call. Every
// Source returns a fresh slice that the caller wipes when done.
package secretx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/vaultcore/internal/common"
	"golang.org/x/term"
)

// ErrNoSecret is returned when a source has nothing to offer.
var ErrNoSecret = errors.New("no secret provided")

// Source yields a master secret.
type Source interface {
	Secret(prompt string) ([]byte, error)
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

// Terminal reads the secret from a terminal without echo. When fd is not a
// terminal it falls back to one line of In, so secrets can be piped in.
type Terminal struct {
	FD  int
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

// NewTerminal reads from stdin and prompts on stderr.
func NewTerminal() *Terminal {
	return &Terminal{FD: int(os.Stdin.Fd()), In: os.Stdin, Out: os.Stderr}
}

func (t *Terminal) Secret(prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(t.Out, prompt+": "); err != nil {
		return nil, err
	}

	if isTerminal(t.FD) {
		pw, err := readPassword(t.FD)
		fmt.Fprintln(t.Out)
		if err != nil {
			return nil, err
		}
		return nonEmpty(pw)
	}

	// must outlive the call: a fresh reader would drop buffered lines
	if t.r == nil {
		t.r = bufio.NewReader(t.In)
	}
	line, err := t.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSecret
		}
		return nil, err
	}
	return nonEmpty([]byte(strings.TrimRight(line, "\r\n")))
}

// Env reads the secret from an environment variable. Meant for automation;
// the variable outlives the call, so prefer Terminal where possible.
type Env struct {
	Var string
}

func (e Env) Secret(string) ([]byte, error) {
	v, ok := os.LookupEnv(e.Var)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not set", ErrNoSecret, e.Var)
	}
	return nonEmpty([]byte(v))
}

func nonEmpty(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrNoSecret
	}
	return b, nil
}

// Wipe zeroes a secret returned by a Source.
func Wipe(b []byte) {
	common.WipeByteArray(b)
}
