// Package tinybasic implements a line-numbered TinyBASIC interpreter.
package tinybasic

import (
	"errors"
	"fmt"
)

// Error definitions specific to TinyBASIC operations.
var (
	ErrUnterminatedString  = errors.New("string not terminated")
	ErrUnexpectedCharacter = errors.New("unexpected character")
	ErrNumberTooLarge      = errors.New("number too large")
	ErrNotAStatement       = errors.New("line not a statement")
	ErrExpectedVariable    = errors.New("expected a variable")
	ErrExpectedEquals      = errors.New("expected an equals")
	ErrExpectedThen        = errors.New("expected THEN after condition")
	ErrExpectedString      = errors.New("expected a string")
	ErrMissingParenthesis  = errors.New("expected closing bracket")
	ErrUnexpectedFactor    = errors.New("unexpected type for factor")
	ErrInvalidLineNumber   = errors.New("invalid line number")
	ErrInvalidNumber       = errors.New("invalid number")
	ErrUnknownStatement    = errors.New("unrecognised statement")
	ErrUnknownRelop        = errors.New("unimplemented relational operator")
	ErrLineNotFound        = errors.New("line not found")
	ErrReturnWithoutGosub  = errors.New("RETURN without GOSUB")
	ErrGosubDepthExceeded  = errors.New("GOSUB depth exceeded")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrInterrupted         = errors.New("program interrupted")
)

// ErrorKind is the category of a BASICError.
type ErrorKind int

const (
	KindLex ErrorKind = iota + 1
	KindSyntax
	KindSemantic
	KindControlFlow
	KindArithmetic
)

// Fehlerkategorien
var kindCategories = map[ErrorKind]string{
	KindLex:         "LEX ERROR",
	KindSyntax:      "SYNTAX ERROR",
	KindSemantic:    "SEMANTIC ERROR",
	KindControlFlow: "RUNTIME ERROR",
	KindArithmetic:  "ARITHMETIC ERROR",
}

// Category returns the printable category, e.g. "SYNTAX ERROR".
func (k ErrorKind) Category() string {
	if c, ok := kindCategories[k]; ok {
		return c
	}
	return "ERROR"
}

// errorCode describes one error: its kind, the sentinel it unwraps to and
// the text shown to the user.
type errorCode struct {
	kind     ErrorKind
	sentinel error
	friendly string
}

var errorCodes = map[string]errorCode{
	"UNTERMINATED_STRING":  {KindLex, ErrUnterminatedString, "STRING NOT TERMINATED"},
	"UNEXPECTED_CHARACTER": {KindLex, ErrUnexpectedCharacter, "UNEXPECTED CHARACTER"},
	"NUMBER_TOO_LARGE":     {KindLex, ErrNumberTooLarge, "NUMBER TOO LARGE"},
	"NOT_A_STATEMENT":      {KindSyntax, ErrNotAStatement, "LINE IS NOT A STATEMENT"},
	"EXPECTED_VARIABLE":    {KindSyntax, ErrExpectedVariable, "VARIABLE NAME EXPECTED"},
	"EXPECTED_EQUALS":      {KindSyntax, ErrExpectedEquals, "EQUALS SIGN (=) EXPECTED"},
	"EXPECTED_THEN":        {KindSyntax, ErrExpectedThen, "THEN KEYWORD EXPECTED AFTER IF CONDITION"},
	"EXPECTED_STRING":      {KindSyntax, ErrExpectedString, "STRING EXPECTED"},
	"MISSING_PARENTHESIS":  {KindSyntax, ErrMissingParenthesis, "MISSING CLOSING PARENTHESIS"},
	"UNEXPECTED_FACTOR":    {KindSyntax, ErrUnexpectedFactor, "NUMBER, VARIABLE OR ( EXPECTED"},
	"INVALID_LINE_NUMBER":  {KindSyntax, ErrInvalidLineNumber, "INVALID LINE NUMBER SPECIFIED"},
	"INVALID_NUMBER":       {KindSyntax, ErrInvalidNumber, "INVALID NUMBER FORMAT"},
	"UNKNOWN_STATEMENT":    {KindSemantic, ErrUnknownStatement, "STATEMENT NOT RECOGNIZED"},
	"UNKNOWN_RELOP":        {KindSemantic, ErrUnknownRelop, "RELATIONAL OPERATOR NOT IMPLEMENTED"},
	"LINE_NOT_FOUND":       {KindControlFlow, ErrLineNotFound, "PROGRAM LINE NOT FOUND"},
	"RETURN_WITHOUT_GOSUB": {KindControlFlow, ErrReturnWithoutGosub, "RETURN STATEMENT WITHOUT A CORRESPONDING GOSUB"},
	"GOSUB_DEPTH_EXCEEDED": {KindControlFlow, ErrGosubDepthExceeded, "MAXIMUM GOSUB NESTING DEPTH EXCEEDED"},
	"INTERRUPTED":          {KindControlFlow, ErrInterrupted, "PROGRAM INTERRUPTED"},
	"DIVISION_BY_ZERO":     {KindArithmetic, ErrDivisionByZero, "DIVISION BY ZERO"},
}

// BASICError is a structured error raised while scanning, parsing or
// executing a statement. It aborts the current line.
type BASICError struct {
	Kind       ErrorKind
	Code       string // one of the errorCodes keys
	Detail     string // offending text, may be empty
	LineNumber int    // program line, 0 in direct mode
	DirectMode bool
}

// NewBASICError builds an error for the given code. Unknown codes are
// reported as syntax errors.
func NewBASICError(code, detail string) *BASICError {
	kind := KindSyntax
	if ec, ok := errorCodes[code]; ok {
		kind = ec.kind
	}
	return &BASICError{
		Kind:       kind,
		Code:       code,
		Detail:     detail,
		DirectMode: true,
	}
}

// Error implementiert das error-Interface
func (be *BASICError) Error() string {
	friendly := be.Code
	if ec, ok := errorCodes[be.Code]; ok {
		friendly = ec.friendly
	}
	if be.Detail != "" {
		friendly += " (" + be.Detail + ")"
	}
	if !be.DirectMode && be.LineNumber > 0 {
		return fmt.Sprintf("%s IN LINE %d: %s", be.Kind.Category(), be.LineNumber, friendly)
	}
	return be.Kind.Category() + ": " + friendly
}

// Unwrap exposes the sentinel for errors.Is.
func (be *BASICError) Unwrap() error {
	if ec, ok := errorCodes[be.Code]; ok {
		return ec.sentinel
	}
	return nil
}

// inLine attaches the program line the error occurred in. An existing line
// number wins so nested IF dispatch keeps the innermost position.
func (be *BASICError) inLine(lineNumber int) *BASICError {
	if be.LineNumber == 0 {
		be.LineNumber = lineNumber
		be.DirectMode = false
	}
	return be
}

// ErrorKindOf reports the kind of a BASICError anywhere in err's chain, or 0.
func ErrorKindOf(err error) ErrorKind {
	var be *BASICError
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// withLine annotates err with lineNumber when it is a BASICError.
func withLine(err error, lineNumber int) error {
	var be *BASICError
	if errors.As(err, &be) {
		be.inLine(lineNumber)
	}
	return err
}
