package tinybasic

import (
	"fmt"
	"strings"
)

// Variables is the table of the 26 single-letter integer variables.
// Unset variables read as 0.
type Variables struct {
	values [VariableCount]int
}

// NewVariables returns a table with every variable at 0.
func NewVariables() *Variables {
	return &Variables{}
}

func variableIndex(name string) (int, bool) {
	if len(name) != 1 {
		return 0, false
	}
	ch := strings.ToUpper(name)[0]
	if ch < 'A' || ch > 'Z' {
		return 0, false
	}
	return int(ch - 'A'), true
}

// Get returns the value of variable name. Names outside A-Z read as 0.
func (v *Variables) Get(name string) int {
	if i, ok := variableIndex(name); ok {
		return v.values[i]
	}
	return 0
}

// Set assigns value to variable name.
func (v *Variables) Set(name string, value int) error {
	i, ok := variableIndex(name)
	if !ok {
		return NewBASICError("EXPECTED_VARIABLE", name)
	}
	v.values[i] = value
	return nil
}

// Reset sets every variable back to 0.
func (v *Variables) Reset() {
	v.values = [VariableCount]int{}
}

// Snapshot returns a copy of all 26 variables keyed by letter.
func (v *Variables) Snapshot() map[string]int {
	out := make(map[string]int, VariableCount)
	for i, val := range v.values {
		out[string(rune('A'+i))] = val
	}
	return out
}

// cmdLet assigns an expression to a variable: LET V = expr
func (b *TinyBASIC) cmdLet(lx *Lexer) error {
	name, err := b.parser.Variable(lx)
	if err != nil {
		return err
	}

	tok, err := lx.NextToken()
	if err != nil {
		return err
	}
	if tok.Kind != TokenEquals {
		return NewBASICError("EXPECTED_EQUALS", tok.Value)
	}

	value, err := b.parser.Expression(lx)
	if err != nil {
		return err
	}
	return b.vars.Set(name, value)
}

// cmdVars prints every non-zero variable in alphabetical order.
func (b *TinyBASIC) cmdVars() error {
	printed := false
	for i, val := range b.vars.values {
		if val == 0 {
			continue
		}
		if err := b.console.WriteLine(fmt.Sprintf("%c = %d", 'A'+i, val)); err != nil {
			return err
		}
		printed = true
	}
	if !printed {
		return b.console.WriteLine("No variables defined.")
	}
	return nil
}
