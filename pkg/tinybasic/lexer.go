package tinybasic

import (
	"strconv"
	"strings"
)

// Lexer turns one line of source text into tokens. It keeps a single
// cursor; PeekToken saves and restores it around NextToken.
type Lexer struct {
	input string
	pos   int
}

// NewLexer erstellt einen neuen Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{}
	l.Parse(input)
	return l
}

// Parse resets the cursor to the start of input.
func (l *Lexer) Parse(input string) {
	l.input = input
	l.pos = 0
}

// Pos returns the cursor position.
func (l *Lexer) Pos() int {
	return l.pos
}

// Rest returns the unconsumed input, verbatim.
func (l *Lexer) Rest() string {
	return l.input[l.pos:]
}

// isSpace überprüft, ob ein Zeichen ein Leerzeichen ist
func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
}

// isDigit überprüft, ob ein Zeichen eine Ziffer ist
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

// nextChar returns the character after the cursor, 0 at end of input.
func (l *Lexer) nextChar() byte {
	if l.pos+1 < len(l.input) {
		return l.input[l.pos+1]
	}
	return 0
}

// NextToken consumes and returns the next token. End of input yields
// TokenEOF. A character that starts no token yields TokenUnknown; the only
// error is an unterminated string or an out-of-range number.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Kind: TokenEOF}, nil
	}

	ch := l.input[l.pos]
	switch {
	case isDigit(ch):
		return l.readNumber()
	case ch == '"':
		return l.readString()
	case ch == '+' || ch == '-':
		l.pos++
		return Token{Kind: TokenOperator, Value: string(ch)}, nil
	case ch == '*' || ch == '/':
		l.pos++
		return Token{Kind: TokenMultOperator, Value: string(ch)}, nil
	case isAlpha(ch) && isAlpha(l.nextChar()):
		return l.readCommand(), nil
	case isAlpha(ch):
		l.pos++
		return Token{Kind: TokenVariable, Value: strings.ToUpper(string(ch))}, nil
	case ch == '<' || ch == '>':
		return l.readRelop(), nil
	case ch == '=':
		l.pos++
		return Token{Kind: TokenEquals, Value: "="}, nil
	case ch == ',':
		l.pos++
		return Token{Kind: TokenComma, Value: ","}, nil
	case ch == '(':
		l.pos++
		return Token{Kind: TokenLBracket, Value: "("}, nil
	case ch == ')':
		l.pos++
		return Token{Kind: TokenRBracket, Value: ")"}, nil
	}

	// The cursor stays on the character; callers abort the line.
	return Token{Kind: TokenUnknown, Value: string(ch)}, nil
}

// PeekToken returns the next token without moving the cursor.
func (l *Lexer) PeekToken() (Token, error) {
	pos := l.pos
	tok, err := l.NextToken()
	l.pos = pos
	return tok, err
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	digits := l.input[start:l.pos]
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Token{}, NewBASICError("NUMBER_TOO_LARGE", digits)
	}
	return Token{Kind: TokenNumber, Value: digits, Num: n}, nil
}

// readString reads a string literal. A doubled quote ("") stands for one
// quote character.
func (l *Lexer) readString() (Token, error) {
	var sb strings.Builder
	l.pos++ // opening quote

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '"' {
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '"' {
				sb.WriteByte('"')
				l.pos += 2
				continue
			}
			l.pos++
			return Token{Kind: TokenString, Value: sb.String()}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}

	return Token{}, NewBASICError("UNTERMINATED_STRING", sb.String())
}

func (l *Lexer) readCommand() Token {
	start := l.pos
	for l.pos < len(l.input) && isAlpha(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: TokenCommand, Value: strings.ToUpper(l.input[start:l.pos])}
}

// readRelop absorbs one following '=', '>' or '<' into the operator.
func (l *Lexer) readRelop() Token {
	op := string(l.input[l.pos])
	switch l.nextChar() {
	case '=', '>', '<':
		op += string(l.nextChar())
		l.pos++
	}
	l.pos++
	return Token{Kind: TokenRelop, Value: op}
}
