package errors

import (
	"errors"
	"fmt"
)

//Kind classifies a dicelang parse or evaluation failure.
type Kind int32

const (
	//Syntax is the error kind for a malformed token stream.
	Syntax Kind = iota
	//UnbalancedParens is the error kind for a missing or stray parenthesis.
	UnbalancedParens
	//InvalidDiceSpec is the error kind for a zero/negative count or sides.
	InvalidDiceSpec
	//TooManyDice is the error kind for a count or sides above the configured bound.
	TooManyDice
	//InvalidKeepCount is the error kind for a keep/drop count that is non-positive
	//or exceeds the number of dice rolled.
	InvalidKeepCount
	//DivisionByZero is the error kind for a zero divisor.
	DivisionByZero
	//EmptyExpression is the error kind for an expression with no tokens.
	EmptyExpression
	//Unexpected errors should not occur.
	Unexpected Kind = 999
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case UnbalancedParens:
		return "unbalanced parentheses"
	case InvalidDiceSpec:
		return "invalid dice spec"
	case TooManyDice:
		return "too many dice"
	case InvalidKeepCount:
		return "invalid keep count"
	case DivisionByZero:
		return "division by zero"
	case EmptyExpression:
		return "empty expression"
	}
	return "unexpected error"
}

//ParseError represents an error found while parsing or evaluating a dicelang
//expression. Pos is the rune offset of the offending token and Snippet the
//offending substring, so callers can render a precise message.
type ParseError struct {
	Err     string
	Kind    Kind
	Pos     int
	Snippet string
}

//Error returns the message string
func (e *ParseError) Error() string {
	return e.Err
}

//NewParseError creates a new ParseError
func NewParseError(kind Kind, pos int, snippet string, text string) *ParseError {
	return &ParseError{
		Err:     text,
		Kind:    kind,
		Pos:     pos,
		Snippet: snippet,
	}
}

//KindOf returns the Kind of err if it is a ParseError, and Unexpected otherwise.
func KindOf(err error) Kind {
	var pErr *ParseError
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return Unexpected
}

//New creates a new simple error
func New(text string) error {
	return errors.New(text)
}

//Newf creates a new simple error with fmt.Sprintf
func Newf(text string, a ...interface{}) error {
	return fmt.Errorf(text, a...)
}
