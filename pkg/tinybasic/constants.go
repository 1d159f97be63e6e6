package tinybasic

// Constants for default values and configuration.
const (
	// MaxGosubDepth defines the default maximum nesting level for GOSUB calls.
	MaxGosubDepth = 100
	// DefaultInputPrompt is shown once per variable read by INPUT.
	DefaultInputPrompt = "?"
	// VariableCount is the number of single-letter variables (A-Z).
	VariableCount = 26
)

// Statement keywords recognised by the dispatcher.
const (
	cmdLet    = "LET"
	cmdPrint  = "PRINT"
	cmdList   = "LIST"
	cmdInput  = "INPUT"
	cmdIf     = "IF"
	cmdThen   = "THEN"
	cmdRun    = "RUN"
	cmdEnd    = "END"
	cmdGoto   = "GOTO"
	cmdGosub  = "GOSUB"
	cmdReturn = "RETURN"
	cmdRem    = "REM"
	cmdVars   = "VARS"
)
