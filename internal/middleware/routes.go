package middleware

import (
	"sort"
	"strings"
)

// Access classifies how much of the pipeline a route goes through.
type Access int

const (
	// AccessProtected routes get quota admission and, for mutating verbs, admin gating.
	AccessProtected Access = iota
	// AccessPublic routes get quota admission when a credential is present but skip
	// admin gating.
	AccessPublic
	// AccessOpen routes skip both stages.
	AccessOpen
)

func (a Access) String() string {
	switch a {
	case AccessOpen:
		return "open"
	case AccessPublic:
		return "public"
	default:
		return "protected"
	}
}

// Default prefixes used when configuration leaves a class empty.
var (
	DefaultOpenPrefixes   = []string{"/auth", "/healthz", "/admin/bootstrap"}
	DefaultPublicPrefixes = []string{"/api/v1/tiers", "/api/v1/favorites", "/api/v1/feedback"}
)

type routeRule struct {
	prefix string
	access Access
}

// RouteTable is the single classification consulted by both admission and admin
// gating. The longest matching prefix wins; a prefix matches whole path segments only,
// so "/auth" covers "/auth/refresh" but not "/authors".
type RouteTable struct {
	rules []routeRule
}

// NewRouteTable builds a table from the open and public prefix lists. Nil lists fall
// back to the defaults; an empty non-nil list means no routes of that class.
func NewRouteTable(open, public []string) *RouteTable {
	if open == nil {
		open = DefaultOpenPrefixes
	}
	if public == nil {
		public = DefaultPublicPrefixes
	}
	t := &RouteTable{}
	for _, p := range public {
		t.add(p, AccessPublic)
	}
	for _, p := range open {
		t.add(p, AccessOpen)
	}
	sort.SliceStable(t.rules, func(i, j int) bool {
		return len(t.rules[i].prefix) > len(t.rules[j].prefix)
	})
	return t
}

func (t *RouteTable) add(prefix string, access Access) {
	prefix = normalizePath(prefix)
	for i, r := range t.rules {
		if r.prefix == prefix {
			t.rules[i].access = access
			return
		}
	}
	t.rules = append(t.rules, routeRule{prefix: prefix, access: access})
}

// Classify returns the access class of path.
func (t *RouteTable) Classify(path string) Access {
	path = normalizePath(path)
	for _, r := range t.rules {
		if matchPrefix(path, r.prefix) {
			return r.access
		}
	}
	return AccessProtected
}

func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
