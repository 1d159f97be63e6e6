package tinybasic

import (
	"strconv"
	"strings"
)

// cmdPrint evaluates an expression list and writes the items joined by
// commas as one line.
func (b *TinyBASIC) cmdPrint(lx *Lexer) error {
	items, err := b.parser.ExpressionList(lx)
	if err != nil {
		return err
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return b.console.WriteLine(strings.Join(parts, ","))
}

// cmdInput reads one value per listed variable from the console. Values are
// stored as integers like every other assignment.
func (b *TinyBASIC) cmdInput(lx *Lexer) error {
	names, err := b.parser.VariableList(lx)
	if err != nil {
		return err
	}

	for _, name := range names {
		raw, err := b.console.ReadLine(b.config.InputPrompt)
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return NewBASICError("INVALID_NUMBER", strings.TrimSpace(raw))
		}
		if err := b.vars.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}
