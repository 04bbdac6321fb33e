// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent // variable or keyword; keyword-ness is resolved by the parser
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokIllegal
)

type token struct {
	kind  tokenKind
	text  string
	num   float64
	pos   int // byte offset of the token's first rune in the source
}

type lexer struct {
	src    string
	pos    int // current byte offset
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			lx.pos++
			continue
		}
		break
	}
}

// next scans and returns the next token, or an error for malformed numbers.
func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := lx.src[lx.pos]
	switch {
	case c == '+':
		lx.pos++
		return token{kind: tokPlus, text: "+", pos: start}, nil
	case c == '-':
		lx.pos++
		return token{kind: tokMinus, text: "-", pos: start}, nil
	case c == '*':
		lx.pos++
		return token{kind: tokStar, text: "*", pos: start}, nil
	case c == '/':
		lx.pos++
		return token{kind: tokSlash, text: "/", pos: start}, nil
	case c == '(':
		lx.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		lx.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		lx.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case isDigit(c):
		return lx.scanNumber()
	case isIdentStart(c):
		return lx.scanIdent()
	default:
		lx.pos++
		return token{kind: tokIllegal, text: string(c), pos: start}, nil
	}
}

func (lx *lexer) scanNumber() (token, error) {
	start := lx.pos
	dots := 0
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isDigit(c) {
			lx.pos++
			continue
		}
		if c == '.' {
			dots++
			lx.pos++
			continue
		}
		break
	}
	text := lx.src[start:lx.pos]
	if dots > 1 {
		return token{kind: tokIllegal, text: text, pos: start}, &parseIssue{pos: start, msg: "malformed number: more than one decimal point"}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{kind: tokIllegal, text: text, pos: start}, &parseIssue{pos: start, msg: "malformed number: " + text}
	}
	return token{kind: tokNumber, text: text, num: v, pos: start}, nil
}

// scanIdent performs maximal munch: a run of alnum/underscore/hyphen
// characters following an alpha/underscore start is consumed as a single
// identifier even when it contains '-', so that a name like "GAIN-A"
// resolves as one variable rather than as "GAIN" minus "A" (spec open
// question (a): the reference silently prefers the variable reading).
func (lx *lexer) scanIdent() (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentCont(lx.src[lx.pos]) {
		lx.pos++
	}
	text := strings.ToUpper(lx.src[start:lx.pos])
	return token{kind: tokIdent, text: text, pos: start}, nil
}

type parseIssue struct {
	pos int
	msg string
}

func (e *parseIssue) Error() string { return e.msg }
