package planner

import (
	"context"
	"fmt"
	"slices"
)

// session caches resolver answers for one planning pass. Lookups for
// names already asked about, found or not, never reach the resolver
// again.
type session struct {
	resolver Resolver
	types    map[string]int64
	roles    map[RoleKey]int64
	asked    map[string]bool
	askedR   map[RoleKey]bool
}

func newSession(r Resolver) *session {
	return &session{
		resolver: r,
		types:    make(map[string]int64),
		roles:    make(map[RoleKey]int64),
		asked:    make(map[string]bool),
		askedR:   make(map[RoleKey]bool),
	}
}

// resolve fetches every name and role not yet asked about in at most
// one call each.
func (s *session) resolve(ctx context.Context, names []string, keys []RoleKey) error {
	var pendingTypes []string
	for _, n := range names {
		if !s.asked[n] && !slices.Contains(pendingTypes, n) {
			pendingTypes = append(pendingTypes, n)
		}
	}
	var pendingRoles []RoleKey
	for _, k := range keys {
		if !s.askedR[k] && !slices.Contains(pendingRoles, k) {
			pendingRoles = append(pendingRoles, k)
		}
	}

	if len(pendingTypes) > 0 {
		ids, err := s.resolver.ResolveTypes(ctx, pendingTypes)
		if err != nil {
			return fmt.Errorf("resolve types: %w", err)
		}
		for _, n := range pendingTypes {
			s.asked[n] = true
			if id, ok := ids[n]; ok {
				s.types[n] = id
			}
		}
	}
	if len(pendingRoles) > 0 {
		ids, err := s.resolver.ResolveRoles(ctx, pendingRoles)
		if err != nil {
			return fmt.Errorf("resolve roles: %w", err)
		}
		for _, k := range pendingRoles {
			s.askedR[k] = true
			if id, ok := ids[k]; ok {
				s.roles[k] = id
			}
		}
	}
	return nil
}

func (s *session) typeID(name string) (int64, bool) {
	id, ok := s.types[name]
	return id, ok
}

func (s *session) roleID(k RoleKey) (int64, bool) {
	id, ok := s.roles[k]
	return id, ok
}
