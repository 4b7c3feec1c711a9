// Package rewrite applies the ordered regex substitutions from §3.3/§4.2:
// ordered (from, to) pairs, applied left to right, where each step's
// result feeds the next and replacements may reference capture groups.
//
// Go's regexp package (RE2) doesn't support backreferences *within* a
// pattern, but that isn't what rewrite needs — it needs capture groups
// referenced in the *replacement* text, which regexp.ReplaceAllString
// already does via $1, $2, ${name}. No third-party regex engine in the
// retrieved examples offers anything rewrite actually requires beyond
// that, so this package is stdlib by design; see DESIGN.md.
package rewrite

import (
	"fmt"
	"regexp"

	"github.com/dan-online/autopulse-sub000/internal/config"
)

// Rule is one compiled (from, to) substitution step.
type Rule struct {
	From *regexp.Regexp
	To   string
}

// Compile turns a configuration rewrite list into executable rules,
// failing fast on any invalid pattern so configuration errors are caught
// at startup (§7).
func Compile(raw []config.RewriteRule) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for i, r := range raw {
		re, err := regexp.Compile(r.From)
		if err != nil {
			return nil, fmt.Errorf("rewrite rule %d: compiling %q: %w", i, r.From, err)
		}
		rules = append(rules, Rule{From: re, To: r.To})
	}
	return rules, nil
}

// Apply runs path through each rule in order, feeding each step's result
// into the next (§4.2). rewrite(rewrite(p)) == rewrite(p) is not
// guaranteed by design (§8.1 invariant 4) — only that Apply is a pure
// function of (rules, path).
func Apply(rules []Rule, path string) string {
	for _, r := range rules {
		path = r.From.ReplaceAllString(path, r.To)
	}
	return path
}
