package catalog

import (
	"github.com/koustreak/mngr/internal/errs"
)

// Scope decides which tables are visible. Patterns use SQL LIKE syntax and
// are matched against "schema.table".
type Scope struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// Validate rejects a scope that can never make anything visible.
func (s Scope) Validate() error {
	if len(s.Include) == 0 {
		return errs.New(errs.ErrKindConfiguration, "scope: include list is empty, no table would be visible")
	}
	return nil
}

// Matches reports whether qualified is visible: it matches at least one
// include pattern and no exclude pattern.
func (s Scope) Matches(qualified string) bool {
	for _, p := range s.Exclude {
		if MatchPattern(p, qualified) {
			return false
		}
	}
	for _, p := range s.Include {
		if MatchPattern(p, qualified) {
			return true
		}
	}
	return false
}

// MatchPattern implements SQL LIKE: % matches any run of characters, _
// matches exactly one, a backslash makes the next character literal.
// Everything else compares case-sensitively.
func MatchPattern(pattern, name string) bool {
	p := []rune(pattern)
	s := []rune(name)

	// Iterative matcher with single-point backtracking on the last %.
	pi, si := 0, 0
	starP, starS := -1, 0
	for si < len(s) {
		if pi < len(p) {
			switch c := p[pi]; {
			case c == '%':
				starP, starS = pi, si
				pi++
				continue
			case c == '_':
				pi++
				si++
				continue
			case c == '\\' && pi+1 < len(p):
				if p[pi+1] == s[si] {
					pi += 2
					si++
					continue
				}
			case c == s[si]:
				pi++
				si++
				continue
			}
		}
		if starP < 0 {
			return false
		}
		starS++
		pi, si = starP+1, starS
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
