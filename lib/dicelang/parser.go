package dicelang

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

//Limits bounds the size of a single dice term. Anything above either bound
//is rejected at parse time with a TooManyDice error, so evaluation stays
//cheap no matter what a user types.
type Limits struct {
	MaxCount int64
	MaxSides int64
}

//DefaultLimits are the stock safety bounds.
var DefaultLimits = Limits{MaxCount: 1000, MaxSides: 1000}

var advantagePhrase = regexp.MustCompile(`(?i)\s*\bwith\s+(advantage|disadvantage)\b\s*$`)

//StripAdvantagePhrase removes a trailing "with advantage"/"with disadvantage"
//phrase from a notation string and returns the corresponding mode.
func StripAdvantagePhrase(notation string) (string, AdvantageMode) {
	loc := advantagePhrase.FindStringSubmatchIndex(notation)
	if loc == nil {
		return notation, AdvantageNone
	}
	mode := Advantage
	if strings.EqualFold(notation[loc[2]:loc[3]], "disadvantage") {
		mode = Disadvantage
	}
	return notation[:loc[0]], mode
}

// Parser implements a top down operator precedence parser
// (https://tdop.github.io/) over the dice notation grammar.
type Parser struct {
	lexer  *Lexer
	limits Limits
}

//NewParser creates a new Parser from an input string using DefaultLimits.
func NewParser(source string) *Parser {
	return NewParserWithLimits(source, DefaultLimits)
}

//NewParserWithLimits creates a new Parser with caller-supplied bounds.
func NewParserWithLimits(source string, limits Limits) *Parser {
	return &Parser{lexer: NewLexer(source), limits: limits}
}

//Parse reads a complete dice notation string into an expression tree and
//applies the advantage rewrite. It has no side effects; the same input
//always yields the same tree or the same typed error.
func Parse(notation string, mode AdvantageMode) (Expr, error) {
	return ParseWithLimits(notation, mode, DefaultLimits)
}

//ParseWithLimits is Parse with caller-supplied term bounds.
func ParseWithLimits(notation string, mode AdvantageMode, limits Limits) (Expr, error) {
	p := NewParserWithLimits(notation, limits)
	root, err := p.Expression()
	if err != nil {
		return nil, err
	}
	if mode != AdvantageNone {
		rewriteAdvantage(root, mode)
	}
	return root, nil
}

//ParseString parses a raw command string, first recognizing and stripping a
//trailing "with advantage"/"with disadvantage" phrase. It returns the tree
//and the detected mode.
func ParseString(notation string) (Expr, AdvantageMode, error) {
	stripped, mode := StripAdvantagePhrase(notation)
	root, err := Parse(stripped, mode)
	if err != nil {
		return nil, mode, err
	}
	return root, mode, nil
}

//Expression consumes the whole token stream and returns the root node.
func (p *Parser) Expression() (Expr, error) {
	first, err := p.lexer.peek()
	if err != nil {
		return nil, err
	}
	if first.kind == tokenEOF {
		return nil, errors.NewParseError(errors.EmptyExpression, 0, "", "nothing to roll")
	}
	root, err := p.expression(0)
	if err != nil {
		return nil, err
	}
	tok, err := p.lexer.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenEOF:
		return root, nil
	case tokenCParen:
		return nil, errors.NewParseError(errors.UnbalancedParens, tok.pos, tok.lit,
			fmt.Sprintf("unmatched \")\" at position %d", tok.pos))
	}
	return nil, errors.NewParseError(errors.Syntax, tok.pos, tok.lit,
		fmt.Sprintf("unexpected %q at position %d", tok.lit, tok.pos))
}

// binding powers; dice terms and unary minus bind tighter than any of these
const (
	bpAdditive       = 50
	bpMultiplicative = 60
	bpUnary          = 70
)

func bindingPower(tok token) int {
	if tok.kind != tokenOperator {
		return 0
	}
	switch tok.lit {
	case "+", "-":
		return bpAdditive
	case "*", "/":
		return bpMultiplicative
	}
	return 0
}

func (p *Parser) expression(rbp int) (Expr, error) {
	left, err := p.nud()
	if err != nil {
		return nil, err
	}
	tok, err := p.lexer.peek()
	if err != nil {
		return nil, err
	}
	for rbp < bindingPower(tok) {
		tok, err = p.lexer.next()
		if err != nil {
			return nil, err
		}
		left, err = p.led(tok, left)
		if err != nil {
			return nil, err
		}
		tok, err = p.lexer.peek()
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// led builds the infix node for an operator token. Division by a literal
// zero is caught here so the evaluator never sees it.
func (p *Parser) led(tok token, left Expr) (Expr, error) {
	right, err := p.expression(bindingPower(tok))
	if err != nil {
		return nil, err
	}
	if tok.lit == "/" && isZeroLiteral(right) {
		return nil, errors.NewParseError(errors.DivisionByZero, tok.pos, tok.lit,
			"cannot divide by zero")
	}
	return &BinaryOp{Op: tok.lit, Left: left, Right: right}, nil
}

func isZeroLiteral(e Expr) bool {
	switch n := e.(type) {
	case *Literal:
		return n.Value == 0
	case *Group:
		return isZeroLiteral(n.Inner)
	}
	return false
}

// nud builds the prefix node for the next token: a literal, a dice term, a
// unary minus, or a parenthesized group.
func (p *Parser) nud() (Expr, error) {
	tok, err := p.lexer.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenNumber:
		n, err := strconv.ParseInt(tok.lit, 10, 64)
		if err != nil {
			return nil, errors.NewParseError(errors.Syntax, tok.pos, tok.lit,
				fmt.Sprintf("%q is not a number I can hold", tok.lit))
		}
		next, err := p.lexer.peek()
		if err != nil {
			return nil, err
		}
		if next.kind == tokenDice {
			p.lexer.next()
			return p.diceTerm(n, tok)
		}
		return &Literal{Value: n}, nil
	case tokenDice:
		// bare dS means 1dS
		return p.diceTerm(1, tok)
	case tokenOperator:
		if tok.lit == "-" {
			operand, err := p.expression(bpUnary)
			if err != nil {
				return nil, err
			}
			if lit, ok := operand.(*Literal); ok {
				return &Literal{Value: -lit.Value}, nil
			}
			return &BinaryOp{Op: "-", Left: &Literal{Value: 0}, Right: operand}, nil
		}
	case tokenOParen:
		inner, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		closing, err := p.lexer.next()
		if err != nil {
			return nil, err
		}
		if closing.kind != tokenCParen {
			return nil, errors.NewParseError(errors.UnbalancedParens, tok.pos, tok.lit,
				fmt.Sprintf("\"(\" at position %d is never closed", tok.pos))
		}
		return &Group{Inner: inner}, nil
	case tokenCParen:
		return nil, errors.NewParseError(errors.UnbalancedParens, tok.pos, tok.lit,
			fmt.Sprintf("unmatched \")\" at position %d", tok.pos))
	case tokenEOF:
		return nil, errors.NewParseError(errors.Syntax, tok.pos, "",
			"expression ends too soon")
	}
	return nil, errors.NewParseError(errors.Syntax, tok.pos, tok.lit,
		fmt.Sprintf("%q is not something I can roll", tok.lit))
}

// diceTerm parses the remainder of a dice term after its d, validating the
// configured bounds and any keep/drop suffix.
func (p *Parser) diceTerm(count int64, at token) (Expr, error) {
	tok, err := p.lexer.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenNumber {
		return nil, errors.NewParseError(errors.Syntax, tok.pos, tok.lit,
			fmt.Sprintf("expected a number of sides at position %d", tok.pos))
	}
	sides, err := strconv.ParseInt(tok.lit, 10, 64)
	if err != nil {
		return nil, errors.NewParseError(errors.Syntax, tok.pos, tok.lit,
			fmt.Sprintf("%q is not a number I can hold", tok.lit))
	}
	if count < 1 {
		return nil, errors.NewParseError(errors.InvalidDiceSpec, at.pos, at.lit,
			"I need at least one die to roll")
	}
	if sides < 1 {
		return nil, errors.NewParseError(errors.InvalidDiceSpec, tok.pos, tok.lit,
			"/me ponders the meaning of a zero sided die")
	}
	if count > p.limits.MaxCount {
		return nil, errors.NewParseError(errors.TooManyDice, at.pos, at.lit,
			fmt.Sprintf("I can't hold more than %d dice!", p.limits.MaxCount))
	}
	if sides > p.limits.MaxSides {
		return nil, errors.NewParseError(errors.TooManyDice, tok.pos, tok.lit,
			fmt.Sprintf("a die with more than %d sides is basically round", p.limits.MaxSides))
	}
	keep, err := p.keepSuffix(count)
	if err != nil {
		return nil, err
	}
	return &DiceTerm{Count: count, Sides: sides, Keep: keep}, nil
}

var keepModes = map[string]KeepMode{
	"kh": KeepHighest,
	"kl": KeepLowest,
	"dh": DropHighest,
	"dl": DropLowest,
}

func (p *Parser) keepSuffix(count int64) (KeepRule, error) {
	tok, err := p.lexer.peek()
	if err != nil {
		return KeepRule{}, err
	}
	mode, ok := keepModes[tok.lit]
	if tok.kind != tokenIdent || !ok {
		return KeepRule{}, nil
	}
	p.lexer.next()
	n := int64(1)
	next, err := p.lexer.peek()
	if err != nil {
		return KeepRule{}, err
	}
	if next.kind == tokenNumber {
		p.lexer.next()
		n, err = strconv.ParseInt(next.lit, 10, 64)
		if err != nil {
			return KeepRule{}, errors.NewParseError(errors.Syntax, next.pos, next.lit,
				fmt.Sprintf("%q is not a number I can hold", next.lit))
		}
	}
	if n < 1 || n > count {
		return KeepRule{}, errors.NewParseError(errors.InvalidKeepCount, tok.pos,
			fmt.Sprintf("%s%d", tok.lit, n),
			fmt.Sprintf("cannot %s %d of %d dice", tok.lit, n, count))
	}
	return KeepRule{Mode: mode, N: n}, nil
}
