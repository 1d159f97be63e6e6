package tinybasic

import (
	"context"

	"github.com/antibyte/linebasic/pkg/logger"
)

// Helper function for TinyBASIC debug logging that respects configuration
func tinyBasicDebugLog(format string, args ...interface{}) {
	logger.Debug(logger.AreaTinyBasic, format, args...)
}

// Config holds the per-session interpreter settings.
type Config struct {
	MaxGosubDepth int    // 0 means MaxGosubDepth
	InputPrompt   string // shown per variable by INPUT
	SessionID     string // used in log lines only
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		MaxGosubDepth: MaxGosubDepth,
		InputPrompt:   DefaultInputPrompt,
	}
}

// TinyBASIC is one interpreter session. It owns the variable table, the
// program store, the program counter and the GOSUB stack. A session is not
// safe for concurrent use; front ends drive it from a single goroutine.
type TinyBASIC struct {
	ctx     context.Context // session lifetime
	lineCtx context.Context // current line, see InterpretLineContext
	console Console
	config  Config

	vars    *Variables
	parser  *Parser
	program *Program

	pc          int   // index into the sorted program snapshot
	gosubStack  []int // saved program counters
	running     bool
	currentLine int // line number being executed, 0 in direct mode
}

// NewTinyBASIC creates a session writing to and reading from console. The
// run loop stops at the next statement boundary once ctx is done.
func NewTinyBASIC(ctx context.Context, console Console, config Config) *TinyBASIC {
	if ctx == nil {
		ctx = context.Background()
	}
	if config.MaxGosubDepth <= 0 {
		config.MaxGosubDepth = MaxGosubDepth
	}
	if config.InputPrompt == "" {
		config.InputPrompt = DefaultInputPrompt
	}
	vars := NewVariables()
	return &TinyBASIC{
		ctx:        ctx,
		console:    console,
		config:     config,
		vars:       vars,
		parser:     NewParser(vars),
		program:    NewProgram(),
		gosubStack: make([]int, 0),
	}
}

// Variables returns the session's variable table.
func (b *TinyBASIC) Variables() *Variables {
	return b.vars
}

// Program returns the session's program store.
func (b *TinyBASIC) Program() *Program {
	return b.program
}

// ProgramCounter returns the index of the statement being executed.
func (b *TinyBASIC) ProgramCounter() int {
	return b.pc
}

// GosubDepth returns the number of saved return positions.
func (b *TinyBASIC) GosubDepth() int {
	return len(b.gosubStack)
}

// IsRunning reports whether a RUN is in progress.
func (b *TinyBASIC) IsRunning() bool {
	return b.running
}

// InterpretLineContext is InterpretLine with an extra context for this line
// only: cancelling ctx interrupts a RUN started by the line but leaves the
// session usable for the next one.
func (b *TinyBASIC) InterpretLineContext(ctx context.Context, line string) error {
	b.lineCtx = ctx
	defer func() { b.lineCtx = nil }()
	return b.InterpretLine(line)
}

// interrupted reports whether the session or the current line was cancelled.
func (b *TinyBASIC) interrupted() bool {
	if b.ctx.Err() != nil {
		return true
	}
	return b.lineCtx != nil && b.lineCtx.Err() != nil
}

// InterpretLine handles one line from the front end. A line starting with a
// number is stored under that number; anything else runs immediately.
func (b *TinyBASIC) InterpretLine(line string) error {
	lx := NewLexer(line)
	first, err := lx.PeekToken()
	if err != nil {
		return err
	}
	if first.Kind != TokenNumber {
		return b.RunLine(line)
	}

	lx.NextToken()
	if first.Num <= 0 {
		return NewBASICError("INVALID_LINE_NUMBER", first.Value)
	}
	b.program.Store(first.Num, lx.Rest())
	b.program.Sort()
	tinyBasicDebugLog("[%s] stored line %d", b.config.SessionID, first.Num)
	return nil
}

// RunLine executes line as a single statement.
func (b *TinyBASIC) RunLine(line string) error {
	return b.executeStatement(NewLexer(line))
}

// executeStatement reads a statement keyword and dispatches to its handler.
func (b *TinyBASIC) executeStatement(lx *Lexer) error {
	cmd, err := b.parser.Statement(lx)
	if err != nil {
		return err
	}
	tinyBasicDebugLog("[%s] dispatch %s (line %d)", b.config.SessionID, cmd, b.currentLine)

	switch cmd {
	case cmdLet:
		return b.cmdLet(lx)
	case cmdPrint:
		return b.cmdPrint(lx)
	case cmdList:
		return b.cmdList()
	case cmdInput:
		return b.cmdInput(lx)
	case cmdIf:
		return b.cmdIf(lx)
	case cmdRun:
		return b.cmdRun()
	case cmdEnd:
		return b.cmdEnd()
	case cmdGoto:
		return b.cmdGoto(lx)
	case cmdGosub:
		return b.cmdGosub(lx)
	case cmdReturn:
		return b.cmdReturn()
	case cmdRem:
		return nil
	case cmdVars:
		return b.cmdVars()
	}
	return NewBASICError("UNKNOWN_STATEMENT", cmd)
}

// Snapshot is a read-only view of the session state.
type Snapshot struct {
	SessionID      string
	Running        bool
	ProgramCounter int
	GosubStack     []int
	Variables      map[string]int
	Lines          map[int]string
}

// Snapshot copies the current session state.
func (b *TinyBASIC) Snapshot() Snapshot {
	lines := make(map[int]string, b.program.Len())
	numbers := b.program.Numbers()
	texts := b.program.Statements()
	for i, n := range numbers {
		lines[n] = texts[i]
	}
	return Snapshot{
		SessionID:      b.config.SessionID,
		Running:        b.running,
		ProgramCounter: b.pc,
		GosubStack:     append([]int(nil), b.gosubStack...),
		Variables:      b.vars.Snapshot(),
		Lines:          lines,
	}
}
