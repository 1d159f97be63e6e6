package tinybasic

import (
	"fmt"
	"strings"
)

// cmdRun executes the stored program from its lowest line until it runs off
// the end, END clears the running flag, or a statement fails. Errors carry
// the number of the failing line. RUN inside a running program restarts the
// current loop at the first line instead of nesting a second one.
func (b *TinyBASIC) cmdRun() error {
	if b.running {
		tinyBasicDebugLog("[%s] RUN in line %d restarts the program", b.config.SessionID, b.currentLine)
		b.pc = -1 // the loop increments to the first line
		b.gosubStack = b.gosubStack[:0]
		return nil
	}

	b.pc = 0
	b.running = true
	b.gosubStack = b.gosubStack[:0]

	b.program.Sort()
	numbers := b.program.Numbers()
	statements := b.program.Statements()

	tinyBasicDebugLog("[%s] RUN with %d lines", b.config.SessionID, len(statements))
	defer func() {
		b.running = false
		b.currentLine = 0
	}()

	for b.pc < len(statements) && b.running {
		if b.interrupted() {
			return withLine(NewBASICError("INTERRUPTED", ""), b.currentLine)
		}
		b.currentLine = numbers[b.pc]

		if err := b.RunLine(statements[b.pc]); err != nil {
			tinyBasicDebugLog("[%s] RUN stopped in line %d: %v", b.config.SessionID, numbers[b.pc], err)
			return withLine(err, numbers[b.pc])
		}
		b.pc++
	}

	tinyBasicDebugLog("[%s] RUN finished at counter %d", b.config.SessionID, b.pc)
	return nil
}

// cmdList writes every stored line in ascending order.
func (b *TinyBASIC) cmdList() error {
	numbers := b.program.Numbers()
	statements := b.program.Statements()
	for i, n := range numbers {
		line := fmt.Sprintf("%d %s", n, strings.TrimSpace(statements[i]))
		if err := b.console.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}
