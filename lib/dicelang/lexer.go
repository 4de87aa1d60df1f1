package dicelang

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aasmall/word2number"

	errors "github.com/selectL-L/sancho/lib/dicelang-errors"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenDice     // the d in NdS
	tokenOperator // + - * /
	tokenIdent    // keep suffixes and stray words
	tokenOParen
	tokenCParen
)

type token struct {
	kind tokenKind
	lit  string
	pos  int // rune offset in the source
}

//Lexer steps through a source string and returns tokens.
type Lexer struct {
	source string
	index  int // byte offset
	pos    int // rune offset
	tok    token
	cached bool
	c      *word2number.Converter
}

//NewLexer creates a new Lexer and initializes the word2number converter.
func NewLexer(source string) *Lexer {
	c, _ := word2number.NewConverter("en")
	return &Lexer{source: source, c: c}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (lex *Lexer) consumeRune(text *bytes.Buffer, r rune, size int) {
	text.WriteRune(r)
	lex.pos++
	lex.index += size
}

func (lex *Lexer) consumeWhitespace() {
	r, size := utf8.DecodeRuneInString(lex.source[lex.index:])
	for size > 0 && unicode.IsSpace(r) {
		lex.pos++
		lex.index += size
		r, size = utf8.DecodeRuneInString(lex.source[lex.index:])
	}
}

func (lex *Lexer) nextNumber() token {
	var text bytes.Buffer
	pos := lex.pos
	for {
		r, size := utf8.DecodeRuneInString(lex.source[lex.index:])
		if size > 0 && unicode.IsDigit(r) {
			lex.consumeRune(&text, r, size)
		} else {
			break
		}
	}
	return token{kind: tokenNumber, lit: text.String(), pos: pos}
}

func (lex *Lexer) nextIdent() token {
	var text bytes.Buffer
	pos := lex.pos
	r, size := utf8.DecodeRuneInString(lex.source[lex.index:])
	if r == 'd' || r == 'D' {
		r1, _ := utf8.DecodeRuneInString(lex.source[lex.index+size:])
		if unicode.IsDigit(r1) {
			lex.consumeRune(&text, r, size)
			return token{kind: tokenDice, lit: "d", pos: pos}
		}
	}
	lex.consumeRune(&text, r, size)
	for {
		r, size = utf8.DecodeRuneInString(lex.source[lex.index:])
		if size > 0 && isLetter(r) {
			lex.consumeRune(&text, r, size)
		} else {
			break
		}
	}
	word := strings.ToLower(text.String())
	if word == "d" {
		// spelled-out counts leave the d on its own: "two d six"
		return token{kind: tokenDice, lit: "d", pos: pos}
	}
	if found, n := convertToNumeric(lex.c, word); found {
		return token{kind: tokenNumber, lit: fmt.Sprintf("%d", n), pos: pos}
	}
	return token{kind: tokenIdent, lit: word, pos: pos}
}

func convertToNumeric(c *word2number.Converter, word string) (bool, int) {
	n := c.Words2Number(word)
	if n == 0 {
		return false, 0
	}
	return true, int(n)
}

func (lex *Lexer) next() (token, error) {
	lex.cached = false
	lex.consumeWhitespace()

	if len(lex.source[lex.index:]) == 0 {
		return token{kind: tokenEOF, lit: "", pos: lex.pos}, nil
	}

	r, size := utf8.DecodeRuneInString(lex.source[lex.index:])
	pos := lex.pos
	switch {
	case unicode.IsDigit(r):
		return lex.nextNumber(), nil
	case isLetter(r):
		return lex.nextIdent(), nil
	}

	var text bytes.Buffer
	lex.consumeRune(&text, r, size)
	switch r {
	case '(':
		return token{kind: tokenOParen, lit: "(", pos: pos}, nil
	case ')':
		return token{kind: tokenCParen, lit: ")", pos: pos}, nil
	case '+', '-', '*', '/':
		return token{kind: tokenOperator, lit: text.String(), pos: pos}, nil
	}
	return token{}, errors.NewParseError(errors.Syntax, pos, text.String(),
		fmt.Sprintf("unexpected character %q at position %d", text.String(), pos))
}

func (lex *Lexer) peek() (token, error) {
	if lex.cached {
		return lex.tok, nil
	}
	index := lex.index
	pos := lex.pos

	tok, err := lex.next()
	if err != nil {
		return token{}, err
	}
	lex.tok = tok
	lex.cached = true

	lex.index = index
	lex.pos = pos
	return tok, nil
}
