package rules

import "github.com/your-org/mediaintake/internal/media"

// Resolve returns the first rule, in input order, whose scope covers kind
// and whose allow-list admits d. Input order is the only tie-break: a
// later, more specific rule never overrides an earlier match.
func Resolve(kind media.Kind, d media.Descriptor, rules []Rule) (Rule, bool) {
	for _, r := range rules {
		if r.AppliesTo(kind) && r.Matches(d) {
			return r, true
		}
	}
	return Rule{}, false
}

// HasCatchAll reports whether any rule is a generic catch-all.
func HasCatchAll(rules []Rule) bool {
	for _, r := range rules {
		if r.IsCatchAll() {
			return true
		}
	}
	return false
}

// Scoped returns the rules whose scope is exactly kind, preserving order.
func Scoped(kind media.Kind, rules []Rule) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Scope == kind {
			out = append(out, r)
		}
	}
	return out
}
