package tinybasic

import (
	"strconv"
)

// cmdIf evaluates a condition and, when it is non-zero, executes the
// statement following THEN on the same line.
func (b *TinyBASIC) cmdIf(lx *Lexer) error {
	cond, err := b.parser.Relational(lx)
	if err != nil {
		return err
	}

	then, err := lx.NextToken()
	if err != nil {
		return err
	}
	if then.Kind != TokenCommand || then.Value != cmdThen {
		return unexpected(then, "EXPECTED_THEN")
	}

	if cond == 0 {
		return nil
	}
	return b.executeStatement(lx)
}

// cmdGoto moves the program counter to the target line. The counter is set
// one before the target's ordinal position because the run loop increments
// it after every statement.
func (b *TinyBASIC) cmdGoto(lx *Lexer) error {
	target, err := b.parser.Expression(lx)
	if err != nil {
		return err
	}
	return b.jumpTo(target)
}

func (b *TinyBASIC) jumpTo(target int) error {
	b.program.Sort()
	pos, ok := b.program.Ordinal(target)
	if !ok {
		return NewBASICError("LINE_NOT_FOUND", strconv.Itoa(target))
	}
	tinyBasicDebugLog("[%s] jump to line %d (ordinal %d)", b.config.SessionID, target, pos)
	b.pc = pos - 1
	return nil
}

// cmdGosub saves the program counter and jumps like GOTO.
func (b *TinyBASIC) cmdGosub(lx *Lexer) error {
	if len(b.gosubStack) >= b.config.MaxGosubDepth {
		return NewBASICError("GOSUB_DEPTH_EXCEEDED", strconv.Itoa(b.config.MaxGosubDepth))
	}
	target, err := b.parser.Expression(lx)
	if err != nil {
		return err
	}

	b.gosubStack = append(b.gosubStack, b.pc)
	if err := b.jumpTo(target); err != nil {
		b.gosubStack = b.gosubStack[:len(b.gosubStack)-1]
		return err
	}
	return nil
}

// cmdReturn restores the program counter saved by the matching GOSUB.
func (b *TinyBASIC) cmdReturn() error {
	if len(b.gosubStack) == 0 {
		return NewBASICError("RETURN_WITHOUT_GOSUB", "")
	}
	last := len(b.gosubStack) - 1
	b.pc = b.gosubStack[last]
	b.gosubStack = b.gosubStack[:last]
	return nil
}

// cmdEnd stops the run loop after the current statement.
func (b *TinyBASIC) cmdEnd() error {
	b.running = false
	return nil
}
