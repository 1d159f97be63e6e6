package tinybasic

// TokenKind classifies a token produced by the Lexer.
type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenNumber
	TokenString
	TokenOperator     // + -
	TokenMultOperator // * /
	TokenCommand
	TokenVariable
	TokenRelop
	TokenEOF
	TokenEquals
	TokenComma
	TokenLBracket
	TokenRBracket
)

var tokenKindNames = map[TokenKind]string{
	TokenUnknown:      "UNKNOWN",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenOperator:     "OPERATOR",
	TokenMultOperator: "MULTOPERATOR",
	TokenCommand:      "COMMAND",
	TokenVariable:     "VARIABLE",
	TokenRelop:        "RELOP",
	TokenEOF:          "EOF",
	TokenEquals:       "EQUALS",
	TokenComma:        "COMMA",
	TokenLBracket:     "LBRACKET",
	TokenRBracket:     "RBRACKET",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a token in the TinyBASIC interpreter.
// Number tokens carry their value in Num, every other kind in Value.
type Token struct {
	Kind  TokenKind
	Value string
	Num   int
}
