package rbac

import (
	"context"
	"strings"
)

// grants is one role's permissions split into exact names and "prefix:*"
// patterns. A bare "*" grants everything.
type grants struct {
	all      bool
	exact    map[string]struct{}
	prefixes []string
}

func compile(perms []string) grants {
	g := grants{exact: map[string]struct{}{}}
	for _, p := range perms {
		switch {
		case p == "*":
			g.all = true
		case strings.HasSuffix(p, "*"):
			g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "*"))
		default:
			g.exact[p] = struct{}{}
		}
	}
	return g
}

func (g grants) allows(perm string) bool {
	if g.all {
		return true
	}
	if _, ok := g.exact[perm]; ok {
		return true
	}
	for _, pre := range g.prefixes {
		if strings.HasPrefix(perm, pre) {
			return true
		}
	}
	return false
}

type Checker struct {
	roles map[string]grants
}

// NewChecker compiles a role policy; nil means RolePermissions.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	c := &Checker{roles: make(map[string]grants, len(rp))}
	for role, perms := range rp {
		c.roles[role] = compile(perms)
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	g, ok := c.roles[role]
	return ok && g.allows(perm)
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
