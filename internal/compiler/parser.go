package compiler

import (
	"strings"
)

// parser is a recursive-descent parser over the query surface:
//
//	spec    := "Given" "<" type {"," type} ">" "." "Match" "(" params "=>" body ")"
//	params  := ident | "(" ident {"," ident} ")"
//	body    := query | chain
//	query   := source {"." ("Where" "(" lambda ")" | "Select" "(" ident "=>" proj ")")}
//	         | "from" ident "in" source {"from" ident "in" source | "where" cond} "select" proj
//	         | "(" query ")"
//	source  := facts "." "OfType" "<" type ">" "(" [ident "=>" cond] ")"
//	cond    := unary {"&&" unary}
//	unary   := "!" unary | "(" cond ")" | "(" query ")" ".Any()" | query ".Any()"
//	         | chain "==" chain | chain
//	proj    := "new" "{" member {"," member} "}" | query | chain
//	member  := ident ["=" proj]
type parser struct {
	tokens []token
	i      int
	facts  string // name of the fact source identifier
}

func newParser(src, facts string) (*parser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens, facts: facts}, nil
}

// parseSpecification parses a full Given<...>.Match(...) expression.
func parseSpecification(src string) (*specExpr, error) {
	p, err := newParser(src, "facts")
	if err != nil {
		return nil, err
	}

	if err := p.expectWord("Given"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLAngle); err != nil {
		return nil, err
	}
	spec := &specExpr{}
	for {
		t, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		spec.types = append(spec.types, t)
		if !p.accept(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRAngle); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDot); err != nil {
		return nil, err
	}
	if err := p.expectWord("Match"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	spec.params = params
	if len(params) == len(spec.types)+1 {
		p.facts = params[len(params)-1].name
	}

	if _, err := p.expect(tokArrow); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	spec.body = body

	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseStandaloneQuery parses a query expression on its own, as used by
// named conditions in the model.
func parseStandaloneQuery(src string) (queryExpr, error) {
	p, err := newParser(src, "facts")
	if err != nil {
		return nil, err
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.i+n]
}

func (p *parser) next() token {
	t := p.peek()
	if p.i < len(p.tokens)-1 {
		p.i++
	}
	return t
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, p.unexpected(t, kind.String())
	}
	return p.next(), nil
}

func (p *parser) expectWord(word string) error {
	t := p.peek()
	if t.kind != tokIdent || t.text != word {
		return p.unexpected(t, word)
	}
	p.next()
	return nil
}

func (p *parser) isWordAt(n int, word string) bool {
	t := p.peekAt(n)
	return t.kind == tokIdent && t.text == word
}

func (p *parser) unexpected(t token, want string) *CompileError {
	got := t.text
	if t.kind == tokEOF {
		got = tokEOF.String()
	}
	return errorf(ErrSyntax, t.pos, "expected %s, found %s", want, got)
}

func (p *parser) parseIdent() (ident, error) {
	t, err := p.expect(tokIdent)
	if err != nil {
		return ident{}, err
	}
	return ident{name: t.text, pos: t.pos}, nil
}

// parseTypeName parses a possibly dotted type name such as Skylane.Flight.
func (p *parser) parseTypeName() (ident, error) {
	first, err := p.parseIdent()
	if err != nil {
		return ident{}, err
	}
	parts := []string{first.name}
	for p.peek().kind == tokDot && p.peekAt(1).kind == tokIdent {
		p.next()
		parts = append(parts, p.next().text)
	}
	return ident{name: strings.Join(parts, "."), pos: first.pos}, nil
}

func (p *parser) parseParams() ([]ident, error) {
	if !p.accept(tokLParen) {
		id, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return []ident{id}, nil
	}
	var params []ident
	for {
		id, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, id)
		if !p.accept(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return params, nil
}

// isQueryAt reports whether a query starts n tokens ahead.
func (p *parser) isQueryAt(n int) bool {
	switch {
	case p.isWordAt(n, "from") && p.peekAt(n+1).kind == tokIdent && p.isWordAt(n+2, "in"):
		return true
	case p.isWordAt(n, p.facts) && p.peekAt(n+1).kind == tokDot && p.isWordAt(n+2, "OfType"):
		return true
	case p.peekAt(n).kind == tokLParen:
		return p.isQueryAt(n + 1)
	}
	return false
}

func (p *parser) parseBody() (bodyExpr, error) {
	if p.isQueryAt(0) {
		return p.parseQuery()
	}
	return p.parseChain()
}

func (p *parser) parseQuery() (queryExpr, error) {
	switch {
	case p.peek().kind == tokLParen:
		p.next()
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return q, nil
	case p.isWordAt(0, "from"):
		return p.parseComprehension()
	default:
		return p.parseMethodQuery()
	}
}

func (p *parser) parseSource() (sourceExpr, error) {
	start := p.peek().pos
	if err := p.expectWord(p.facts); err != nil {
		return sourceExpr{}, err
	}
	if _, err := p.expect(tokDot); err != nil {
		return sourceExpr{}, err
	}
	if err := p.expectWord("OfType"); err != nil {
		return sourceExpr{}, err
	}
	if _, err := p.expect(tokLAngle); err != nil {
		return sourceExpr{}, err
	}
	typ, err := p.parseTypeName()
	if err != nil {
		return sourceExpr{}, err
	}
	if _, err := p.expect(tokRAngle); err != nil {
		return sourceExpr{}, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return sourceExpr{}, err
	}
	src := sourceExpr{typ: typ, pos: start}
	if p.peek().kind != tokRParen {
		lambda, err := p.parseCondLambda()
		if err != nil {
			return sourceExpr{}, err
		}
		src.filter = &lambda
	}
	if _, err := p.expect(tokRParen); err != nil {
		return sourceExpr{}, err
	}
	return src, nil
}

func (p *parser) parseCondLambda() (condLambda, error) {
	param, err := p.parseIdent()
	if err != nil {
		return condLambda{}, err
	}
	if _, err := p.expect(tokArrow); err != nil {
		return condLambda{}, err
	}
	body, err := p.parseCond()
	if err != nil {
		return condLambda{}, err
	}
	return condLambda{param: param, body: body}, nil
}

func (p *parser) parseMethodQuery() (queryExpr, error) {
	src, err := p.parseSource()
	if err != nil {
		return nil, err
	}
	q := methodQuery{source: src}
	for p.peek().kind == tokDot {
		switch {
		case p.isWordAt(1, "Where"):
			p.next()
			p.next()
			if _, err := p.expect(tokLParen); err != nil {
				return nil, err
			}
			lambda, err := p.parseCondLambda()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			q.wheres = append(q.wheres, lambda)
		case p.isWordAt(1, "Select"):
			p.next()
			p.next()
			if _, err := p.expect(tokLParen); err != nil {
				return nil, err
			}
			param, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokArrow); err != nil {
				return nil, err
			}
			body, err := p.parseProj()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			q.sel = &projLambda{param: param, body: body}
			return q, nil
		case p.isWordAt(1, "Any"):
			return q, nil
		default:
			t := p.peekAt(1)
			return nil, errorf(ErrUnsupportedShape, t.pos, "unsupported query operator %s; use Where, Select, or Any", t.text)
		}
	}
	return q, nil
}

func (p *parser) parseComprehension() (queryExpr, error) {
	var q comprehension
	for {
		switch {
		case p.isWordAt(0, "from"):
			p.next()
			variable, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectWord("in"); err != nil {
				return nil, err
			}
			src, err := p.parseSource()
			if err != nil {
				return nil, err
			}
			q.clauses = append(q.clauses, fromClause{variable: variable, source: src})
		case p.isWordAt(0, "where"):
			p.next()
			cond, err := p.parseCond()
			if err != nil {
				return nil, err
			}
			q.clauses = append(q.clauses, whereClause{cond: cond})
		case p.isWordAt(0, "select"):
			p.next()
			sel, err := p.parseProj()
			if err != nil {
				return nil, err
			}
			q.sel = sel
			return q, nil
		default:
			return nil, p.unexpected(p.peek(), "from, where, or select")
		}
	}
}

func (p *parser) parseCond() (condExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andCond{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (condExpr, error) {
	t := p.peek()
	switch {
	case t.kind == tokNot:
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notCond{inner: inner, pos: t.pos}, nil
	case p.isQueryAt(0):
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		if err := p.expectAny(); err != nil {
			return nil, err
		}
		return anyCond{query: q, pos: t.pos}, nil
	case t.kind == tokLParen:
		p.next()
		inner, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}

	left, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	eq := p.peek()
	if !p.accept(tokEq) {
		if len(left.members) == 0 {
			return nil, errorf(ErrUnsupportedShape, left.root.pos,
				"%s is not a condition; compare two paths with == or use a named condition", left.root.name)
		}
		return namedCond{chain: left}, nil
	}
	right, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	return equalsCond{left: left, right: right, pos: eq.pos}, nil
}

func (p *parser) expectAny() error {
	if _, err := p.expect(tokDot); err != nil {
		return err
	}
	if err := p.expectWord("Any"); err != nil {
		return err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return err
	}
	_, err := p.expect(tokRParen)
	return err
}

func (p *parser) parseChain() (chainExpr, error) {
	root, err := p.parseIdent()
	if err != nil {
		return chainExpr{}, err
	}
	chain := chainExpr{root: root}
	for p.peek().kind == tokDot && p.peekAt(1).kind == tokIdent && !p.isWordAt(1, "Any") {
		p.next()
		member, err := p.parseIdent()
		if err != nil {
			return chainExpr{}, err
		}
		chain.members = append(chain.members, member)
	}
	return chain, nil
}

func (p *parser) parseProj() (projExpr, error) {
	t := p.peek()
	switch {
	case p.isWordAt(0, "new") && p.peekAt(1).kind == tokLBrace:
		return p.parseComposite()
	case p.isQueryAt(0):
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		return queryProj{query: q, pos: t.pos}, nil
	}

	chain, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	if len(chain.members) > 0 {
		return chainProj{chain: chain}, nil
	}
	return identProj{name: chain.root}, nil
}

func (p *parser) parseComposite() (projExpr, error) {
	p.next() // new
	p.next() // {
	var comp compositeProj
	for p.peek().kind != tokRBrace {
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		member := memberExpr{name: name, value: identProj{name: name}}
		if p.accept(tokAssign) {
			value, err := p.parseProj()
			if err != nil {
				return nil, err
			}
			member.value = value
		}
		comp.members = append(comp.members, member)
		if !p.accept(tokComma) {
			break
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return comp, nil
}
