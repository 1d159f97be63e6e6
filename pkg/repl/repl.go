// Package repl is the console front end: it reads lines from the terminal
// and feeds them to one interpreter session.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/tinybasic"

	"github.com/goforj/godump"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

// Console reads and writes lines for a session. On a terminal it uses a
// line editor with history, otherwise it falls back to plain streams.
type Console struct {
	out    io.Writer
	line   *liner.State
	stream *tinybasic.StreamConsole

	// lineContext scopes one interpreted line; Ctrl-C cancels it.
	lineContext func(context.Context) (context.Context, context.CancelFunc)
}

func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// New returns a console on in and out. The line editor is used only when
// both are terminals.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lineContext: interruptContext}
	if isTerminal(in) && isTerminal(out) {
		c.line = liner.NewLiner()
		c.line.SetCtrlCAborts(true)
		logger.Debug(logger.AreaRepl, "line editor enabled")
	} else {
		c.stream = tinybasic.NewStreamConsole(in, out)
	}
	return c
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Close restores the terminal.
func (c *Console) Close() error {
	if c.line != nil {
		return c.line.Close()
	}
	return nil
}

// WriteLine writes text followed by a newline.
func (c *Console) WriteLine(text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}

// ReadLine prompts for one line. Ctrl-C while editing is reported as
// tinybasic.ErrInterrupted, Ctrl-D as io.EOF.
func (c *Console) ReadLine(prompt string) (string, error) {
	if c.line == nil {
		return c.stream.ReadLine(prompt)
	}
	s, err := c.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", tinybasic.ErrInterrupted
	}
	return s, err
}

// Loop reads lines with prompt and interprets them until EOF, :quit or
// ctx is cancelled. Ctrl-C interrupts the running line only; the session
// and its program stay. Lines starting with ':' are console commands:
//
//	:state  dump the session state
//	:quit   leave the loop
func (c *Console) Loop(ctx context.Context, b *tinybasic.TinyBASIC, prompt string) error {
	if prompt != "" && !strings.HasSuffix(prompt, " ") {
		prompt += " "
	}

	for ctx.Err() == nil {
		text, err := c.ReadLine(prompt)
		if errors.Is(err, tinybasic.ErrInterrupted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return nil
		case trimmed == ":state":
			if _, err := io.WriteString(c.out, godump.DumpStr(b.Snapshot())); err != nil {
				return err
			}
			continue
		case trimmed == ":trace on" || trimmed == ":trace off":
			state := strings.TrimPrefix(trimmed, ":trace ")
			logger.SetAreaEnabled(logger.AreaTinyBasic, state == "on")
			c.WriteLine(fmt.Sprintf("Interpreter trace %s", state))
			continue
		case strings.HasPrefix(trimmed, ":"):
			c.WriteLine("Unknown console command " + trimmed)
			continue
		}

		if c.line != nil {
			c.line.AppendHistory(text)
		}
		lineCtx, stop := c.lineContext(ctx)
		err = b.InterpretLineContext(lineCtx, text)
		stop()
		if err != nil {
			logger.Debug(logger.AreaRepl, "line %q failed: %v", text, err)
			if werr := c.WriteLine(err.Error()); werr != nil {
				return werr
			}
		}
	}
	return ctx.Err()
}
