package compiler

import (
	"slices"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/factdb/internal/schema"
	"github.com/roach88/factdb/internal/spec"
)

// Compile translates a query expression into a Specification.
//
// Example:
//
//	s, err := compiler.Compile(model,
//		`Given<Airline>.Match(a => facts.OfType<Flight>(f => f.airlineDay.airline == a))`)
//
// Labels are named after the model alias of their type in lowerCamel case
// (flight, flight2, ...), so equivalent expressions produce identical
// specifications regardless of the variable names chosen. Errors are
// *CompileError values; no partial specification is ever returned.
func Compile(model *schema.Model, expr string) (*spec.Specification, error) {
	ast, err := parseSpecification(expr)
	if err != nil {
		return nil, err
	}
	c := &compiler{
		model: model,
		used:  make(map[string]bool),
		order: make(map[string]int),
	}
	return c.compileSpec(ast)
}

// MustCompile is like Compile but panics on error. Use only for
// statically known expressions.
func MustCompile(model *schema.Model, expr string) *spec.Specification {
	s, err := Compile(model, expr)
	if err != nil {
		panic(err)
	}
	return s
}

type compiler struct {
	model *schema.Model
	used  map[string]bool // label names already taken
	order map[string]int  // label name -> binding order
}

// binding ties an alias written in the expression to a label.
type binding struct {
	alias string
	label spec.Label
	ft    *schema.FactType
	order int
}

func (b *binding) display() string {
	if b.alias != "" {
		return b.alias
	}
	return b.label.Name
}

type scope struct {
	parent  *scope
	aliases map[string]*binding
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, aliases: make(map[string]*binding)}
}

func (s *scope) lookup(alias string) *binding {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.aliases[alias]; ok {
			return b
		}
	}
	return nil
}

// visible returns every label in scope in binding order.
func (s *scope) visible() []*binding {
	seen := make(map[string]bool)
	var out []*binding
	for sc := s; sc != nil; sc = sc.parent {
		for _, b := range sc.aliases {
			if !seen[b.label.Name] {
				seen[b.label.Name] = true
				out = append(out, b)
			}
		}
	}
	slices.SortFunc(out, func(a, b *binding) int { return a.order - b.order })
	return out
}

// level collects the matches of one query: the top-level query, a
// collection, or an existential condition.
type level struct {
	matches []spec.Match
	entries []levelEntry
	index   map[string]int // label name -> match index
}

type levelEntry struct {
	binding    *binding
	candidates []*binding // labels bound before this one, for join hints
	pos        Pos
}

func newLevel() *level {
	return &level{index: make(map[string]int)}
}

func (c *compiler) compileSpec(ast *specExpr) (*spec.Specification, error) {
	if len(ast.params) != len(ast.types) && len(ast.params) != len(ast.types)+1 {
		return nil, errorf(ErrUnsupportedShape, ast.params[0].pos,
			"Match takes one parameter per given type, optionally followed by the fact source; found %d parameters for %d types",
			len(ast.params), len(ast.types))
	}

	root := newScope(nil)
	given := make([]spec.Label, 0, len(ast.types))
	for i, t := range ast.types {
		ft, err := c.lookupType(t)
		if err != nil {
			return nil, err
		}
		b := c.newBinding(ast.params[i].name, ft)
		root.aliases[b.alias] = b
		given = append(given, b.label)
	}

	var s *spec.Specification
	switch body := ast.body.(type) {
	case chainExpr:
		var err error
		if s, err = c.compilePredecessorShorthand(root, given, body); err != nil {
			return nil, err
		}
	case queryExpr:
		lvl, proj, err := c.compileQuery(root, body, true)
		if err != nil {
			return nil, err
		}
		s = &spec.Specification{Given: given, Matches: lvl.matches, Projection: proj}
	default:
		return nil, errorf(ErrUnsupportedShape, Pos{}, "unsupported body %T", body)
	}
	if err := spec.Validate(s); err != nil {
		return nil, errorf(ErrUnsupportedShape, Pos{}, "invalid specification: %v", err)
	}
	return s, nil
}

// compilePredecessorShorthand handles c => c.flight: a single match that
// walks predecessor roles up from a given.
func (c *compiler) compilePredecessorShorthand(sc *scope, given []spec.Label, chain chainExpr) (*spec.Specification, error) {
	if len(chain.members) == 0 {
		return nil, errorf(ErrUnsupportedShape, chain.root.pos,
			"the Match body must be a query or a predecessor path such as %s.role", chain.root.name)
	}
	path, err := c.resolveChain(sc, chain)
	if err != nil {
		return nil, err
	}
	end, _ := c.model.Lookup(path.end)
	b := c.newBinding("", end)
	match := spec.Match{
		Unknown: b.label,
		PathConditions: []spec.PathCondition{{
			LabelRight: path.root.label.Name,
			RolesRight: path.roles,
		}},
	}
	return &spec.Specification{
		Given:      given,
		Matches:    []spec.Match{match},
		Projection: spec.FactProjection{Label: b.label.Name},
	}, nil
}

// compileQuery compiles a query into a new level. The projection is
// compiled only when withProjection is set; existential sub-queries
// ignore it.
func (c *compiler) compileQuery(sc *scope, q queryExpr, withProjection bool) (*level, spec.Projection, error) {
	lvl := newLevel()
	inner := newScope(sc)

	var proj spec.Projection
	var pending func() error

	switch q := q.(type) {
	case methodQuery:
		alias := ""
		if q.source.filter != nil {
			alias = q.source.filter.param.name
		}
		b, err := c.introduce(inner, lvl, q.source, alias)
		if err != nil {
			return nil, nil, err
		}
		if q.source.filter != nil {
			if err := c.compileCond(inner, lvl, q.source.filter.body, false); err != nil {
				return nil, nil, err
			}
		}
		for _, w := range q.wheres {
			ws := newScope(inner)
			ws.aliases[w.param.name] = b
			if err := c.compileCond(ws, lvl, w.body, false); err != nil {
				return nil, nil, err
			}
		}
		proj = spec.FactProjection{Label: b.label.Name}
		if q.sel != nil {
			sel := q.sel
			pending = func() error {
				ss := newScope(inner)
				ss.aliases[sel.param.name] = b
				p, err := c.compileProj(ss, sel.body)
				proj = p
				return err
			}
		}

	case comprehension:
		for _, cl := range q.clauses {
			switch cl := cl.(type) {
			case fromClause:
				b, err := c.introduce(inner, lvl, cl.source, cl.variable.name)
				if err != nil {
					return nil, nil, err
				}
				if cl.source.filter != nil {
					fs := newScope(inner)
					fs.aliases[cl.source.filter.param.name] = b
					if err := c.compileCond(fs, lvl, cl.source.filter.body, false); err != nil {
						return nil, nil, err
					}
				}
			case whereClause:
				if err := c.compileCond(inner, lvl, cl.cond, false); err != nil {
					return nil, nil, err
				}
			}
		}
		pending = func() error {
			p, err := c.compileProj(inner, q.sel)
			proj = p
			return err
		}

	default:
		return nil, nil, errorf(ErrUnsupportedShape, Pos{}, "unsupported query %T", q)
	}

	if err := c.validateJoins(lvl); err != nil {
		return nil, nil, err
	}
	if withProjection && pending != nil {
		if err := pending(); err != nil {
			return nil, nil, err
		}
	}
	return lvl, proj, nil
}

// introduce binds a new label for the source type and opens its match.
func (c *compiler) introduce(sc *scope, lvl *level, src sourceExpr, alias string) (*binding, error) {
	ft, err := c.lookupType(src.typ)
	if err != nil {
		return nil, err
	}
	candidates := sc.visible()
	b := c.newBinding(alias, ft)
	if alias != "" {
		sc.aliases[alias] = b
	}
	lvl.index[b.label.Name] = len(lvl.matches)
	lvl.matches = append(lvl.matches, spec.Match{Unknown: b.label})
	lvl.entries = append(lvl.entries, levelEntry{binding: b, candidates: candidates, pos: src.pos})
	return b, nil
}

func (c *compiler) lookupType(t ident) (*schema.FactType, error) {
	ft, ok := c.model.Lookup(t.name)
	if !ok {
		return nil, errorf(ErrUnknownType, t.pos, "unknown fact type %s", t.name)
	}
	return ft, nil
}

// newBinding allocates a label named after the type alias.
func (c *compiler) newBinding(alias string, ft *schema.FactType) *binding {
	base := lowerCamel(ft.Alias)
	name := base
	for n := 2; c.used[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	c.used[name] = true
	c.order[name] = len(c.order)
	return &binding{
		alias: alias,
		label: spec.Label{Name: name, Type: ft.Name},
		ft:    ft,
		order: c.order[name],
	}
}

func lowerCamel(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func (c *compiler) compileCond(sc *scope, lvl *level, cond condExpr, negated bool) error {
	switch cond := cond.(type) {
	case andCond:
		if negated {
			return errorf(ErrUnsupportedShape, Pos{}, "negating a conjunction is not supported; negate each existential condition")
		}
		if err := c.compileCond(sc, lvl, cond.left, false); err != nil {
			return err
		}
		return c.compileCond(sc, lvl, cond.right, false)

	case notCond:
		return c.compileCond(sc, lvl, cond.inner, !negated)

	case equalsCond:
		if negated {
			return errorf(ErrUnsupportedShape, cond.pos,
				"negated comparisons are not supported; use !(...).Any() to exclude facts")
		}
		return c.compileEquals(sc, lvl, cond)

	case anyCond:
		nested, _, err := c.compileQuery(sc, cond.query, false)
		if err != nil {
			return err
		}
		return c.attachExistential(lvl, nested.matches, !negated, cond.pos)

	case namedCond:
		return c.compileNamed(sc, lvl, cond, negated)

	default:
		return errorf(ErrUnsupportedShape, Pos{}, "unsupported condition %T", cond)
	}
}

func (c *compiler) compileEquals(sc *scope, lvl *level, cond equalsCond) error {
	left, err := c.resolveChain(sc, cond.left)
	if err != nil {
		return err
	}
	right, err := c.resolveChain(sc, cond.right)
	if err != nil {
		return err
	}
	if left.root.label.Name == right.root.label.Name {
		return errorf(ErrUnsupportedShape, cond.pos,
			"both sides of the comparison start at %s; compare it with another variable", left.root.display())
	}

	unknown, other := left, right
	if right.root.order > left.root.order {
		unknown, other = right, left
	}
	idx, ok := lvl.index[unknown.root.label.Name]
	if !ok {
		return &CompileError{
			Code:     ErrUnsupportedShape,
			Message:  "the comparison must involve a variable introduced by this query",
			Variable: unknown.root.display(),
			Pos:      cond.pos,
		}
	}
	if unknown.end != other.end {
		return errorf(ErrTypeMismatch, cond.pos, "cannot compare %s (%s) with %s (%s)",
			unknown.text, unknown.end, other.text, other.end)
	}

	m := &lvl.matches[idx]
	m.PathConditions = append(m.PathConditions, spec.PathCondition{
		RolesLeft:  unknown.roles,
		LabelRight: other.root.label.Name,
		RolesRight: other.roles,
	})
	return nil
}

// compileNamed expands x.Condition into the existential it names.
func (c *compiler) compileNamed(sc *scope, lvl *level, cond namedCond, negated bool) error {
	root := sc.lookup(cond.chain.root.name)
	if root == nil {
		return unknownVariable(cond.chain.root)
	}
	if len(cond.chain.members) != 1 {
		last := cond.chain.members[len(cond.chain.members)-1]
		return errorf(ErrUnsupportedShape, last.pos,
			"named conditions apply directly to a variable, as in %s.%s", root.display(), last.name)
	}
	member := cond.chain.members[0]
	expr, ok := root.ft.Condition(member.name)
	if !ok {
		if _, isRole := root.ft.Role(member.name); isRole {
			return errorf(ErrUnsupportedShape, member.pos,
				"%s.%s is a predecessor, not a condition; compare it with == instead", root.display(), member.name)
		}
		return errorf(ErrUnknownCondition, member.pos, "type %s has no condition %s", root.ft.Alias, member.name)
	}

	q, err := parseStandaloneQuery(expr)
	if err != nil {
		return wrapCondition(root.ft.Alias, member, err)
	}
	cs := newScope(sc)
	cs.aliases["this"] = root
	nested, _, err := c.compileQuery(cs, q, false)
	if err != nil {
		return wrapCondition(root.ft.Alias, member, err)
	}
	return c.attachExistential(lvl, nested.matches, !negated, member.pos)
}

func wrapCondition(alias string, member ident, err error) error {
	ce, ok := err.(*CompileError)
	if !ok {
		return err
	}
	out := *ce
	out.Message = "condition " + alias + "." + member.name + ": " + ce.Message
	out.Pos = member.pos
	return &out
}

// attachExistential adds the condition to the match of the most recently
// bound outer label that the nested matches join to.
func (c *compiler) attachExistential(lvl *level, nested []spec.Match, exists bool, pos Pos) error {
	target := ""
	for _, name := range outerReferences(nested) {
		if target == "" || c.order[name] > c.order[target] {
			target = name
		}
	}
	idx, ok := lvl.index[target]
	if !ok {
		return errorf(ErrUnsupportedShape, pos,
			"the existential condition must refer to a variable introduced by this query")
	}
	m := &lvl.matches[idx]
	m.ExistentialConditions = append(m.ExistentialConditions, spec.ExistentialCondition{
		Exists:  exists,
		Matches: nested,
	})
	return nil
}

// outerReferences lists labels the matches join to without binding them.
func outerReferences(matches []spec.Match) []string {
	bound := make(map[string]bool)
	var refs []string
	var walk func(ms []spec.Match)
	walk = func(ms []spec.Match) {
		for _, m := range ms {
			for _, pc := range m.PathConditions {
				if !bound[pc.LabelRight] {
					refs = append(refs, pc.LabelRight)
				}
			}
			bound[m.Unknown.Name] = true
			for _, ec := range m.ExistentialConditions {
				walk(ec.Matches)
			}
		}
	}
	walk(matches)
	return refs
}

// resolvedChain is a member-access chain resolved against the model.
type resolvedChain struct {
	root  *binding
	roles []spec.Role
	end   string // fact type reached
	text  string // as written
}

func (c *compiler) resolveChain(sc *scope, chain chainExpr) (resolvedChain, error) {
	root := sc.lookup(chain.root.name)
	if root == nil {
		return resolvedChain{}, unknownVariable(chain.root)
	}
	out := resolvedChain{root: root, text: chain.root.name}
	ft := root.ft
	for _, m := range chain.members {
		role, ok := ft.Role(m.name)
		if !ok {
			if _, isCond := ft.Condition(m.name); isCond {
				return resolvedChain{}, errorf(ErrUnsupportedShape, m.pos,
					"%s is a condition of %s and cannot be navigated", m.name, ft.Alias)
			}
			return resolvedChain{}, errorf(ErrUnknownRole, m.pos, "type %s has no predecessor %s", ft.Alias, m.name)
		}
		target, ok := c.model.Target(role)
		if !ok {
			return resolvedChain{}, errorf(ErrUnknownType, m.pos, "unknown fact type %s", role.Target)
		}
		out.roles = append(out.roles, spec.Role{Name: m.name, TargetType: target.Name})
		out.text += "." + m.name
		ft = target
	}
	out.end = ft.Name
	return out, nil
}

func unknownVariable(id ident) *CompileError {
	return &CompileError{
		Code:     ErrUnknownVariable,
		Message:  "unknown variable " + id.name,
		Variable: id.name,
		Pos:      id.pos,
	}
}

func (c *compiler) compileProj(sc *scope, p projExpr) (spec.Projection, error) {
	switch p := p.(type) {
	case identProj:
		b := sc.lookup(p.name.name)
		if b == nil {
			return nil, unknownVariable(p.name)
		}
		return spec.FactProjection{Label: b.label.Name}, nil

	case chainProj:
		return nil, errorf(ErrUnsupportedShape, p.chain.root.pos,
			"projecting a path is not supported; select a variable or a nested query")

	case compositeProj:
		comp := spec.CompositeProjection{}
		seen := make(map[string]bool)
		for _, m := range p.members {
			if seen[m.name.name] {
				return nil, errorf(ErrUnsupportedShape, m.name.pos, "member %s appears more than once", m.name.name)
			}
			seen[m.name.name] = true
			inner, err := c.compileProj(sc, m.value)
			if err != nil {
				return nil, err
			}
			comp.Members = append(comp.Members, spec.Member{Name: m.name.name, Projection: inner})
		}
		return comp, nil

	case queryProj:
		lvl, proj, err := c.compileQuery(sc, p.query, true)
		if err != nil {
			return nil, err
		}
		return spec.CollectionProjection{Matches: lvl.matches, Projection: proj}, nil

	default:
		return nil, errorf(ErrUnsupportedShape, Pos{}, "unsupported projection %T", p)
	}
}
