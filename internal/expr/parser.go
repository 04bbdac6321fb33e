// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

// unaryKeywords maps the recognised unary function names to their operator.
// An identifier matching one of these exactly (after upper-casing) is a
// function keyword, never a variable, even if it is present in the
// admissible variable set.
var unaryKeywords = map[string]format.Operator{
	"SIN":  format.OpSin,
	"COS":  format.OpCos,
	"TAN":  format.OpTan,
	"LOG":  format.OpLog,
	"SQRT": format.OpSqrt,
	"ABS":  format.OpAbs,
	"EXP":  format.OpExp,
}

const powKeyword = "POW"

// ParseError is one error produced during parsing: a byte position, a
// 20-character context window around it, and a human-readable message.
type ParseError struct {
	Pos     int
	Context string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("expr: %s at %d (near %q)", e.Message, e.Pos, e.Context)
}

func contextWindow(src string, pos int) string {
	const radius = 10
	lo := pos - radius
	if lo < 0 {
		lo = 0
	}
	hi := pos + radius
	if hi > len(src) {
		hi = len(src)
	}
	return src[lo:hi]
}

// parser implements the recursive-descent grammar from the specification:
//
//	Expr     := Term (('+'|'-') Term)*
//	Term     := Factor (('*'|'/') Factor)*
//	Factor   := ('+'|'-')? (Function | Primary)
//	Function := UnaryName '(' Expr ')' | 'POW' '(' Expr ',' Expr ')'
//	Primary  := NUMBER | VARIABLE | '(' Expr ')'
type parser struct {
	src        string
	lx         *lexer
	tok        token
	admissible map[string]bool
	used       []string
	usedSet    map[string]bool
	errs       []error
}

// Parse tokenises and parses src against the admissible set of variable
// names, returning the tree plus the variables referenced in first-seen
// order. Every error encountered is accumulated and returned together;
// parsing only fails (tree == nil) once end-of-expression is reached with
// at least one error recorded.
func Parse(src string, admissible map[string]bool) (*Tree, []error) {
	p := &parser{
		src:        src,
		lx:         newLexer(src),
		admissible: admissible,
		usedSet:    map[string]bool{},
	}
	p.advance()
	root := p.parseExpr()
	if p.tok.kind != tokEOF {
		p.errorAt(p.tok.pos, fmt.Sprintf("trailing input after expression: %q", p.tok.text))
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return &Tree{Root: root, Used: p.used}, nil
}

func (p *parser) advance() {
	tok, err := p.lx.next()
	if err != nil {
		if pi, ok := err.(*parseIssue); ok {
			p.errorAt(pi.pos, pi.msg)
		} else {
			p.errorAt(p.lx.pos, err.Error())
		}
	}
	p.tok = tok
}

func (p *parser) errorAt(pos int, msg string) {
	p.errs = append(p.errs, &ParseError{
		Pos:     pos,
		Context: contextWindow(p.src, pos),
		Message: msg,
	})
}

func (p *parser) recordUse(name string) {
	if !p.usedSet[name] {
		p.usedSet[name] = true
		p.used = append(p.used, name)
	}
}

func (p *parser) parseExpr() *Node {
	left := p.parseTerm()
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := format.OpAdd
		if p.tok.kind == tokMinus {
			op = format.OpSub
		}
		p.advance()
		right := p.parseTerm()
		left = binary(op, left, right)
	}
	return left
}

func (p *parser) parseTerm() *Node {
	left := p.parseFactor()
	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		op := format.OpMul
		if p.tok.kind == tokSlash {
			op = format.OpDiv
		}
		p.advance()
		right := p.parseFactor()
		left = binary(op, left, right)
	}
	return left
}

func (p *parser) parseFactor() *Node {
	// Unary + / - lowers per spec: unary '-' becomes `0 - x`, unary '+' is
	// erased (identity), so it never appears in the built tree.
	if p.tok.kind == tokPlus {
		p.advance()
		return p.parseFunctionOrPrimary()
	}
	if p.tok.kind == tokMinus {
		p.advance()
		operand := p.parseFunctionOrPrimary()
		return binary(format.OpSub, number(0), operand)
	}
	return p.parseFunctionOrPrimary()
}

func (p *parser) parseFunctionOrPrimary() *Node {
	if p.tok.kind == tokIdent {
		name := p.tok.text
		if op, ok := unaryKeywords[name]; ok {
			p.advance()
			return p.parseUnaryCall(op)
		}
		if name == powKeyword {
			p.advance()
			return p.parsePowCall()
		}
	}
	return p.parsePrimary()
}

func (p *parser) parseUnaryCall(op format.Operator) *Node {
	if p.tok.kind != tokLParen {
		p.errorAt(p.tok.pos, "expected '(' after unary function name")
		return number(0)
	}
	p.advance()
	arg := p.parseExpr()
	if p.tok.kind != tokRParen {
		p.errorAt(p.tok.pos, "expected ')' to close function call")
	} else {
		p.advance()
	}
	return unary(op, arg)
}

func (p *parser) parsePowCall() *Node {
	if p.tok.kind != tokLParen {
		p.errorAt(p.tok.pos, "expected '(' after POW")
		return number(0)
	}
	p.advance()
	left := p.parseExpr()
	if p.tok.kind != tokComma {
		p.errorAt(p.tok.pos, "expected ',' between POW arguments")
	} else {
		p.advance()
	}
	right := p.parseExpr()
	if p.tok.kind != tokRParen {
		p.errorAt(p.tok.pos, "expected ')' to close POW call")
	} else {
		p.advance()
	}
	return binary(format.OpPow, left, right)
}

func (p *parser) parsePrimary() *Node {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		p.advance()
		return number(v)
	case tokIdent:
		name := p.tok.text
		pos := p.tok.pos
		p.advance()
		if p.admissible != nil && !p.admissible[name] {
			p.errorAt(pos, fmt.Sprintf("undefined variable %q", name))
		}
		p.recordUse(name)
		return variable(name)
	case tokLParen:
		p.advance()
		inner := p.parseExpr()
		if p.tok.kind != tokRParen {
			p.errorAt(p.tok.pos, "expected ')'")
		} else {
			p.advance()
		}
		return inner
	default:
		p.errorAt(p.tok.pos, fmt.Sprintf("unexpected token %q", p.tok.text))
		// Resynchronise by consuming the bad token so parsing can continue
		// and surface further errors in the same pass, rather than looping.
		if p.tok.kind != tokEOF {
			p.advance()
		}
		return number(0)
	}
}
