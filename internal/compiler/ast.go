package compiler

// The expression AST mirrors the accepted surface syntax one to one.
// It carries aliases exactly as written; the compiler resolves them to
// labels and model types.

type ident struct {
	name string
	pos  Pos
}

// specExpr is Given<T...>.Match(params => body).
type specExpr struct {
	types  []ident
	params []ident
	body   bodyExpr
}

// bodyExpr is either a query or a predecessor chain.
type bodyExpr interface{ bodyNode() }

// chainExpr is a member-access chain: root.m1.m2...
type chainExpr struct {
	root    ident
	members []ident
}

func (chainExpr) bodyNode() {}

// queryExpr is a method query or a comprehension.
type queryExpr interface {
	bodyExpr
	queryNode()
}

// sourceExpr is facts.OfType<U>() with an optional filter lambda.
type sourceExpr struct {
	typ    ident
	filter *condLambda
	pos    Pos
}

type condLambda struct {
	param ident
	body  condExpr
}

type projLambda struct {
	param ident
	body  projExpr
}

// methodQuery is facts.OfType<U>(...).Where(...).Select(...).
type methodQuery struct {
	source sourceExpr
	wheres []condLambda
	sel    *projLambda
}

func (methodQuery) bodyNode()  {}
func (methodQuery) queryNode() {}

// comprehension is from u in source {from | where} select proj.
type comprehension struct {
	clauses []clause
	sel     projExpr
}

func (comprehension) bodyNode()  {}
func (comprehension) queryNode() {}

type clause interface{ clauseNode() }

type fromClause struct {
	variable ident
	source   sourceExpr
}

func (fromClause) clauseNode() {}

type whereClause struct {
	cond condExpr
}

func (whereClause) clauseNode() {}

type condExpr interface{ condNode() }

// equalsCond is chain == chain.
type equalsCond struct {
	left, right chainExpr
	pos         Pos
}

// notCond is !cond.
type notCond struct {
	inner condExpr
	pos   Pos
}

// andCond is cond && cond.
type andCond struct {
	left, right condExpr
}

// anyCond is (query).Any().
type anyCond struct {
	query queryExpr
	pos   Pos
}

// namedCond is label.Condition.
type namedCond struct {
	chain chainExpr
}

func (equalsCond) condNode() {}
func (notCond) condNode()    {}
func (andCond) condNode()    {}
func (anyCond) condNode()    {}
func (namedCond) condNode()  {}

type projExpr interface{ projNode() }

// identProj selects a label.
type identProj struct {
	name ident
}

// compositeProj is new { Name = value, ... }.
type compositeProj struct {
	members []memberExpr
}

type memberExpr struct {
	name  ident
	value projExpr
}

// queryProj is a nested query used as a collection.
type queryProj struct {
	query queryExpr
	pos   Pos
}

// chainProj is a member-access chain in a projection; recognized only to
// report it precisely.
type chainProj struct {
	chain chainExpr
}

func (identProj) projNode()     {}
func (compositeProj) projNode() {}
func (queryProj) projNode()     {}
func (chainProj) projNode()     {}
