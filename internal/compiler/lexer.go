package compiler

import (
	"strings"
	"text/scanner"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokString
	tokArrow  // =>
	tokEq     // ==
	tokAnd    // &&
	tokNot    // !
	tokAssign // =
	tokLParen
	tokRParen
	tokLAngle
	tokRAngle
	tokLBrace
	tokRBrace
	tokDot
	tokComma
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of expression",
	tokIdent:  "identifier",
	tokInt:    "number",
	tokString: "string",
	tokArrow:  "=>",
	tokEq:     "==",
	tokAnd:    "&&",
	tokNot:    "!",
	tokAssign: "=",
	tokLParen: "(",
	tokRParen: ")",
	tokLAngle: "<",
	tokRAngle: ">",
	tokLBrace: "{",
	tokRBrace: "}",
	tokDot:    ".",
	tokComma:  ",",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string
	pos  Pos
}

var singleChar = map[rune]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'<': tokLAngle,
	'>': tokRAngle,
	'{': tokLBrace,
	'}': tokRBrace,
	'.': tokDot,
	',': tokComma,
	'!': tokNot,
}

// tokenize splits an expression into tokens. Comments are skipped.
func tokenize(src string) ([]token, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(src))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings |
		scanner.ScanComments | scanner.SkipComments

	var scanErr *CompileError
	s.Error = func(s *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = errorf(ErrSyntax, Pos{s.Pos().Line, s.Pos().Column}, "%s", msg)
		}
	}

	var tokens []token
	for r := s.Scan(); r != scanner.EOF; r = s.Scan() {
		pos := Pos{Line: s.Position.Line, Column: s.Position.Column}
		switch r {
		case scanner.Ident:
			tokens = append(tokens, token{kind: tokIdent, text: s.TokenText(), pos: pos})
		case scanner.Int:
			tokens = append(tokens, token{kind: tokInt, text: s.TokenText(), pos: pos})
		case scanner.String:
			tokens = append(tokens, token{kind: tokString, text: s.TokenText(), pos: pos})
		case '=':
			switch s.Peek() {
			case '>':
				s.Next()
				tokens = append(tokens, token{kind: tokArrow, text: "=>", pos: pos})
			case '=':
				s.Next()
				tokens = append(tokens, token{kind: tokEq, text: "==", pos: pos})
			default:
				tokens = append(tokens, token{kind: tokAssign, text: "=", pos: pos})
			}
		case '&':
			if s.Peek() != '&' {
				return nil, errorf(ErrSyntax, pos, "expected &&")
			}
			s.Next()
			tokens = append(tokens, token{kind: tokAnd, text: "&&", pos: pos})
		default:
			kind, ok := singleChar[r]
			if !ok {
				return nil, errorf(ErrSyntax, pos, "unexpected character %q", r)
			}
			tokens = append(tokens, token{kind: kind, text: string(r), pos: pos})
		}
		if scanErr != nil {
			return nil, scanErr
		}
	}
	if scanErr != nil {
		return nil, scanErr
	}

	end := Pos{Line: s.Position.Line, Column: s.Position.Column}
	if !end.IsValid() {
		end = Pos{Line: s.Pos().Line, Column: s.Pos().Column}
	}
	return append(tokens, token{kind: tokEOF, pos: end}), nil
}
