package tinybasic

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Console is the line-oriented sink and source a session talks to. PRINT,
// LIST and VARS write through WriteLine; INPUT blocks in ReadLine.
type Console interface {
	WriteLine(text string) error
	ReadLine(prompt string) (string, error)
}

// StreamConsole adapts a reader and writer pair to Console.
type StreamConsole struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStreamConsole wraps in and out.
func NewStreamConsole(in io.Reader, out io.Writer) *StreamConsole {
	return &StreamConsole{in: bufio.NewReader(in), out: out}
}

// WriteLine writes text followed by a newline.
func (c *StreamConsole) WriteLine(text string) error {
	_, err := fmt.Fprintln(c.out, text)
	return err
}

// ReadLine writes prompt and reads one line without its line ending. A
// final line without newline is returned before io.EOF.
func (c *StreamConsole) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		if _, err := io.WriteString(c.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
