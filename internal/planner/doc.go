// Package planner turns a Specification into a tree of store walks and
// executes it.
//
// Build resolves every type and role the specification names through a
// Resolver, once per planning session, and lays the matches out as an
// arena of nodes. A node hangs beneath the node that bound the most
// recent label it joins to, so every label a node needs is bound on its
// path from the root. Existential conditions and collection members
// become sub-plans of the same shape.
//
// Execute walks the tree against a Source. Each node issues one batched
// Follow per path condition for all of its parent rows; sibling
// sub-trees run concurrently. The result-set tree is then assembled into
// Products: a cross product across sibling branches and an inner join
// down each branch, preserving the store's row order.
//
// A node that needs a type or role the store has never seen cannot match
// anything. Such sub-plans are answered empty without a store call; an
// unsatisfiable existential counts as "no facts".
package planner
