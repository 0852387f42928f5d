package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/factdb/internal/schema"
)

// suggestDepth bounds the predecessor walks used for join hints.
const suggestDepth = 3

// validateJoins requires every match of the level to carry at least one
// path condition tying it to a previously bound label.
func (c *compiler) validateJoins(lvl *level) error {
	for i, m := range lvl.matches {
		if len(m.PathConditions) > 0 {
			continue
		}
		e := lvl.entries[i]
		b := e.binding
		msg := fmt.Sprintf("The variable %q (%s: %s) is not joined to a prior variable.",
			b.display(), b.label.Name, b.label.Type)
		return &CompileError{
			Code:       ErrMissingJoin,
			Message:    msg,
			Variable:   b.display(),
			Suggestion: c.suggestJoin(b, e.candidates),
			Pos:        e.pos,
		}
	}
	return nil
}

// suggestJoin proposes a where clause joining u to the closest prior
// label, preferring the most recently bound one.
func (c *compiler) suggestJoin(u *binding, candidates []*binding) string {
	if len(candidates) == 0 {
		return ""
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		b := candidates[i]
		if path := c.predecessorPath(u.ft, b.ft.Name); path != nil {
			return fmt.Sprintf("where %s.%s == %s", u.display(), strings.Join(path, "."), b.display())
		}
		if path := c.predecessorPath(b.ft, u.ft.Name); path != nil {
			return fmt.Sprintf("where %s == %s.%s", u.display(), b.display(), strings.Join(path, "."))
		}
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		b := candidates[i]
		if left, right, ok := c.commonAncestor(u.ft, b.ft); ok {
			return fmt.Sprintf("where %s.%s == %s.%s",
				u.display(), strings.Join(left, "."), b.display(), strings.Join(right, "."))
		}
	}
	last := candidates[len(candidates)-1]
	return fmt.Sprintf("where %s.<predecessor> == %s", u.display(), last.display())
}

// predecessorPath finds the shortest role path from one type up to the
// named type.
func (c *compiler) predecessorPath(from *schema.FactType, target string) []string {
	paths := c.ancestors(from)
	if p, ok := paths[target]; ok {
		return p
	}
	return nil
}

// ancestors maps each type reachable by predecessor roles to the shortest
// role path reaching it. Breadth first, so shorter paths win.
func (c *compiler) ancestors(from *schema.FactType) map[string][]string {
	out := make(map[string][]string)
	type step struct {
		ft   *schema.FactType
		path []string
	}
	frontier := []step{{ft: from}}
	for depth := 0; depth < suggestDepth && len(frontier) > 0; depth++ {
		var next []step
		for _, s := range frontier {
			for _, r := range s.ft.Roles {
				target, ok := c.model.Target(r)
				if !ok {
					continue
				}
				if _, seen := out[target.Name]; seen || target.Name == from.Name {
					continue
				}
				path := append(append([]string(nil), s.path...), r.Name)
				out[target.Name] = path
				next = append(next, step{ft: target, path: path})
			}
		}
		frontier = next
	}
	return out
}

// commonAncestor finds the type reachable from both a and b with the
// shortest combined path.
func (c *compiler) commonAncestor(a, b *schema.FactType) ([]string, []string, bool) {
	left := c.ancestors(a)
	right := c.ancestors(b)
	var bestL, bestR []string
	found := false
	// Model order keeps the choice deterministic.
	for _, ft := range c.model.Types() {
		l, okL := left[ft.Name]
		r, okR := right[ft.Name]
		if !okL || !okR {
			continue
		}
		if !found || len(l)+len(r) < len(bestL)+len(bestR) {
			bestL, bestR, found = l, r, true
		}
	}
	return bestL, bestR, found
}
