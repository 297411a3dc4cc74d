// Package ui renders deployment progress and results for a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Console is an output stream and whether it can take colour and redraws.
type Console struct {
	Out         io.Writer
	Interactive bool
}

// NewConsole enables colour and redraws only when out is a terminal.
func NewConsole(out io.Writer) *Console {
	c := &Console{Out: out}
	if f, ok := out.(*os.File); ok {
		c.Interactive = term.IsTerminal(int(f.Fd()))
	}
	return c
}

func (c *Console) Printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.Out, format, args...)
}

func (c *Console) colorize(colors text.Colors, s string) string {
	if !c.Interactive {
		return s
	}
	return colors.Sprint(s)
}

func (c *Console) Good(s string) string {
	return c.colorize(text.Colors{text.FgGreen, text.Bold}, s)
}

func (c *Console) Bad(s string) string {
	return c.colorize(text.Colors{text.FgRed, text.Bold}, s)
}

func (c *Console) Warn(s string) string {
	return c.colorize(text.Colors{text.FgYellow}, s)
}

func (c *Console) Info(s string) string {
	return c.colorize(text.Colors{text.FgCyan}, s)
}

func (c *Console) CommitVerdict(v model.CommitVerdict) string {
	switch v {
	case model.VerdictCommitted:
		return c.Good(string(v))
	case model.VerdictCommitFailed:
		return c.Bad(string(v))
	case "":
		return "-"
	default:
		return c.Warn(string(v))
	}
}

func (c *Console) SyncVerdict(v model.SyncVerdict) string {
	switch v {
	case model.VerdictSynchronized:
		return c.Good(string(v))
	case model.VerdictSyncFailed:
		return c.Bad(string(v))
	case "":
		return "-"
	default:
		return c.Warn(string(v))
	}
}

func (c *Console) RunState(s model.RunState) string {
	switch s {
	case model.RunConverged:
		return c.Good(string(s))
	case model.RunPlanned:
		return c.Info(string(s))
	default:
		return c.Bad(string(s))
	}
}

// ReadPassword prompts on the controlling terminal without echo.
func ReadPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, unable to prompt for password")
	}
	_, _ = fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "unable to read password")
	}
	return strings.TrimSpace(string(pw)), nil
}
