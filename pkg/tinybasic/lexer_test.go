package tinybasic

import (
	"errors"
	"strconv"
	"testing"
)

func TestLexerTokenKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []TokenKind
		vals  []string
	}{
		{"number", "100", []TokenKind{TokenNumber, TokenEOF}, []string{"100", ""}},
		{"string", `"hello world"`, []TokenKind{TokenString, TokenEOF}, []string{"hello world", ""}},
		{"operators", "+ - * /", []TokenKind{TokenOperator, TokenOperator, TokenMultOperator, TokenMultOperator, TokenEOF}, []string{"+", "-", "*", "/", ""}},
		{"command", "PRINT", []TokenKind{TokenCommand, TokenEOF}, []string{"PRINT", ""}},
		{"variable", "A", []TokenKind{TokenVariable, TokenEOF}, []string{"A", ""}},
		{"lowercase keyword", "let a", []TokenKind{TokenCommand, TokenVariable, TokenEOF}, []string{"LET", "A", ""}},
		{"relops", "< > <= >= <> ><", []TokenKind{TokenRelop, TokenRelop, TokenRelop, TokenRelop, TokenRelop, TokenRelop, TokenEOF}, []string{"<", ">", "<=", ">=", "<>", "><", ""}},
		{"punctuation", "= , ( )", []TokenKind{TokenEquals, TokenComma, TokenLBracket, TokenRBracket, TokenEOF}, []string{"=", ",", "(", ")", ""}},
		{"statement", "LET A = 10", []TokenKind{TokenCommand, TokenVariable, TokenEquals, TokenNumber, TokenEOF}, []string{"LET", "A", "=", "10", ""}},
		{"variable before relop", "IF I<8 THEN", []TokenKind{TokenCommand, TokenVariable, TokenRelop, TokenNumber, TokenCommand, TokenEOF}, []string{"IF", "I", "<", "8", "THEN", ""}},
		{"trailing letter is a variable", "PRINT X", []TokenKind{TokenCommand, TokenVariable, TokenEOF}, []string{"PRINT", "X", ""}},
		{"unknown character", "#", []TokenKind{TokenUnknown}, []string{"#"}},
		{"empty", "   ", []TokenKind{TokenEOF}, []string{""}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lx := NewLexer(test.input)
			for i, want := range test.kinds {
				tok, err := lx.NextToken()
				if err != nil {
					t.Fatalf("token %d: unexpected error: %v", i, err)
				}
				if tok.Kind != want {
					t.Fatalf("token %d: expected kind %v, got %v (%q)", i, want, tok.Kind, tok.Value)
				}
				if tok.Value != test.vals[i] {
					t.Errorf("token %d: expected value %q, got %q", i, test.vals[i], tok.Value)
				}
			}
		})
	}
}

func TestLexerNumberValues(t *testing.T) {
	for _, n := range []int{0, 1, 7, 42, 100, 65535, 123456789, 9223372036854775807} {
		digits := strconv.Itoa(n)
		tok, err := NewLexer(digits).NextToken()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", digits, err)
		}
		if tok.Kind != TokenNumber || tok.Num != n {
			t.Errorf("%s: expected NUMBER %d, got %v %d", digits, n, tok.Kind, tok.Num)
		}
	}

	tok, err := NewLexer("007").NextToken()
	if err != nil || tok.Num != 7 {
		t.Errorf("leading zeros: expected 7, got %d (%v)", tok.Num, err)
	}
}

func TestLexerNumberTooLarge(t *testing.T) {
	_, err := NewLexer("99999999999999999999999").NextToken()
	if !errors.Is(err, ErrNumberTooLarge) {
		t.Fatalf("expected ErrNumberTooLarge, got %v", err)
	}
	if ErrorKindOf(err) != KindLex {
		t.Errorf("expected lex error, got kind %v", ErrorKindOf(err))
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	_, err := NewLexer(`"abc`).NextToken()
	if !errors.Is(err, ErrUnterminatedString) {
		t.Fatalf("expected ErrUnterminatedString, got %v", err)
	}
	if ErrorKindOf(err) != KindLex {
		t.Errorf("expected lex error, got kind %v", ErrorKindOf(err))
	}
}

func TestLexerEscapedQuote(t *testing.T) {
	tok, err := NewLexer(`"say ""hi"""`).NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Value != `say "hi"` {
		t.Errorf("expected %q, got %q", `say "hi"`, tok.Value)
	}
}

func TestLexerRelopAbsorbsOneCharacter(t *testing.T) {
	lx := NewLexer("<<=")
	tok, _ := lx.NextToken()
	if tok.Kind != TokenRelop || tok.Value != "<<" {
		t.Fatalf("expected RELOP <<, got %v %q", tok.Kind, tok.Value)
	}
	tok, _ = lx.NextToken()
	if tok.Kind != TokenEquals {
		t.Errorf("expected EQUALS after <<, got %v", tok.Kind)
	}
}

func TestLexerPeekHasNoNetEffect(t *testing.T) {
	inputs := []string{"LET A = 10", `PRINT "x", 1`, "  42", "(1+2)*3", "A<>B", ""}
	for _, input := range inputs {
		peeking := NewLexer(input)
		plain := NewLexer(input)
		for {
			peeked, perr := peeking.PeekToken()
			got, gerr := peeking.NextToken()
			want, _ := plain.NextToken()

			if perr != nil || gerr != nil {
				t.Fatalf("%q: unexpected error: %v / %v", input, perr, gerr)
			}
			if peeked != got {
				t.Errorf("%q: peek returned %+v, next returned %+v", input, peeked, got)
			}
			if peeking.Pos() != plain.Pos() {
				t.Errorf("%q: cursor at %d after peek+next, expected %d", input, peeking.Pos(), plain.Pos())
			}
			if got != want || got.Kind == TokenEOF {
				break
			}
		}
	}
}

func TestLexerEOFIsRepeatable(t *testing.T) {
	lx := NewLexer("A")
	lx.NextToken()
	for i := 0; i < 3; i++ {
		tok, err := lx.NextToken()
		if err != nil || tok.Kind != TokenEOF {
			t.Fatalf("expected EOF, got %v (%v)", tok.Kind, err)
		}
	}
}

func TestLexerParseResets(t *testing.T) {
	lx := NewLexer("PRINT")
	lx.NextToken()
	lx.Parse("GOTO 10")
	tok, _ := lx.NextToken()
	if tok.Value != "GOTO" || lx.Pos() != 4 {
		t.Errorf("expected GOTO at position 4, got %q at %d", tok.Value, lx.Pos())
	}
	if lx.Rest() != " 10" {
		t.Errorf("expected rest %q, got %q", " 10", lx.Rest())
	}
}
