package tinybasic

import (
	"strconv"
)

// BASICValue is one item of an expression list: either an integer or a
// string literal.
type BASICValue struct {
	NumValue  int
	StrValue  string
	IsNumeric bool
}

func (v BASICValue) String() string {
	if v.IsNumeric {
		return strconv.Itoa(v.NumValue)
	}
	return v.StrValue
}

func numericValue(n int) BASICValue {
	return BASICValue{NumValue: n, IsNumeric: true}
}

func stringValue(s string) BASICValue {
	return BASICValue{StrValue: s}
}

// Parser is a recursive-descent parser that evaluates while it parses.
// It reads variables from the session's table and never writes them.
type Parser struct {
	vars *Variables
}

// NewParser returns a parser reading from vars.
func NewParser(vars *Variables) *Parser {
	return &Parser{vars: vars}
}

// unexpected converts a token the grammar cannot use into an error. An
// unclassified character is a lex error, anything else uses code.
func unexpected(tok Token, code string) error {
	if tok.Kind == TokenUnknown {
		return NewBASICError("UNEXPECTED_CHARACTER", tok.Value)
	}
	return NewBASICError(code, tok.Value)
}

// Statement reads the leading Command token of a statement.
func (p *Parser) Statement(lx *Lexer) (string, error) {
	tok, err := lx.NextToken()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokenCommand {
		return "", unexpected(tok, "NOT_A_STATEMENT")
	}
	return tok.Value, nil
}

// Relational parses expr [relop expr]. Without an operator the left value
// is returned unchanged, otherwise 1 or 0.
func (p *Parser) Relational(lx *Lexer) (int, error) {
	left, err := p.Expression(lx)
	if err != nil {
		return 0, err
	}

	relop, err := lx.PeekToken()
	if err != nil {
		return 0, err
	}
	if relop.Kind != TokenRelop && relop.Kind != TokenEquals {
		return left, nil
	}
	lx.NextToken()

	right, err := p.Expression(lx)
	if err != nil {
		return 0, err
	}

	var result bool
	switch relop.Value {
	case "<":
		result = left < right
	case ">":
		result = left > right
	case "<=":
		result = left <= right
	case ">=":
		result = left >= right
	case "=":
		result = left == right
	case "<>", "><":
		result = left != right
	default:
		return 0, NewBASICError("UNKNOWN_RELOP", relop.Value)
	}
	if result {
		return 1, nil
	}
	return 0, nil
}

// Expression parses [+|-] term {(+|-) term}.
func (p *Parser) Expression(lx *Lexer) (int, error) {
	sign := 1
	tok, err := lx.PeekToken()
	if err != nil {
		return 0, err
	}
	if tok.Kind == TokenOperator {
		lx.NextToken()
		if tok.Value == "-" {
			sign = -1
		}
	}

	val, err := p.Term(lx)
	if err != nil {
		return 0, err
	}

	for {
		op, err := lx.PeekToken()
		if err != nil {
			return 0, err
		}
		if op.Kind != TokenOperator {
			break
		}
		lx.NextToken()

		right, err := p.Term(lx)
		if err != nil {
			return 0, err
		}
		if op.Value == "+" {
			val += right
		} else {
			val -= right
		}
	}

	return sign * val, nil
}

// Term parses factor {(*|/) factor}. Division truncates toward zero.
func (p *Parser) Term(lx *Lexer) (int, error) {
	val, err := p.Factor(lx)
	if err != nil {
		return 0, err
	}

	for {
		op, err := lx.PeekToken()
		if err != nil {
			return 0, err
		}
		if op.Kind != TokenMultOperator {
			break
		}
		lx.NextToken()

		right, err := p.Factor(lx)
		if err != nil {
			return 0, err
		}
		if op.Value == "*" {
			val *= right
			continue
		}
		if right == 0 {
			return 0, NewBASICError("DIVISION_BY_ZERO", "")
		}
		val /= right
	}

	return val, nil
}

// Factor parses a number, a variable or a bracketed expression.
func (p *Parser) Factor(lx *Lexer) (int, error) {
	tok, err := lx.NextToken()
	if err != nil {
		return 0, err
	}

	switch tok.Kind {
	case TokenNumber:
		return tok.Num, nil
	case TokenVariable:
		return p.vars.Get(tok.Value), nil
	case TokenLBracket:
		return p.bracketed(lx)
	}
	return 0, unexpected(tok, "UNEXPECTED_FACTOR")
}

func (p *Parser) bracketed(lx *Lexer) (int, error) {
	val, err := p.Expression(lx)
	if err != nil {
		return 0, err
	}
	tok, err := lx.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenRBracket {
		return 0, unexpected(tok, "MISSING_PARENTHESIS")
	}
	return val, nil
}

// ExpressionList parses item {, item} where an item is a string literal or
// an expression.
func (p *Parser) ExpressionList(lx *Lexer) ([]BASICValue, error) {
	var list []BASICValue
	for {
		item, err := p.listItem(lx)
		if err != nil {
			return nil, err
		}
		list = append(list, item)

		tok, err := lx.PeekToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenComma {
			return list, nil
		}
		lx.NextToken()
	}
}

func (p *Parser) listItem(lx *Lexer) (BASICValue, error) {
	tok, err := lx.PeekToken()
	if err != nil {
		return BASICValue{}, err
	}
	if tok.Kind == TokenString {
		s, err := p.String(lx)
		if err != nil {
			return BASICValue{}, err
		}
		return stringValue(s), nil
	}
	n, err := p.Expression(lx)
	if err != nil {
		return BASICValue{}, err
	}
	return numericValue(n), nil
}

// String reads one string literal.
func (p *Parser) String(lx *Lexer) (string, error) {
	tok, err := lx.NextToken()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokenString {
		return "", unexpected(tok, "EXPECTED_STRING")
	}
	return tok.Value, nil
}

// VariableList parses V {, V}.
func (p *Parser) VariableList(lx *Lexer) ([]string, error) {
	var names []string
	for {
		name, err := p.Variable(lx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)

		tok, err := lx.PeekToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenComma {
			return names, nil
		}
		lx.NextToken()
	}
}

// Variable reads one variable name.
func (p *Parser) Variable(lx *Lexer) (string, error) {
	tok, err := lx.NextToken()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokenVariable {
		return "", unexpected(tok, "EXPECTED_VARIABLE")
	}
	return tok.Value, nil
}
