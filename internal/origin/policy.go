// Package origin decides which browser origins may call the API.
//
// Entries are matched in three ways:
//   - exact string equality ("https://app.example.com")
//   - sub-path prefix: an origin starting with entry + "/" is admitted unless
//     the policy is strict
//   - glob: entries containing '*' are compiled with gobwas/glob using '.',
//     '/' and ':' as separators, so "https://*.vercel.app" admits
//     "https://preview-1.vercel.app" but not "https://a.b.vercel.app"
//
// A request without an Origin header is always admitted; it is not a
// cross-origin browser request.
package origin

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Policy is an immutable origin allow-list. It is safe for concurrent use.
type Policy struct {
	exact  []string
	globs  []compiledPattern
	strict bool
}

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// NewPolicy compiles allowed into a Policy. Entries are trimmed and empty
// entries are dropped. An invalid glob is an error.
func NewPolicy(allowed []string, strict bool) (*Policy, error) {
	p := &Policy{strict: strict}

	for i, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "*") {
			p.exact = append(p.exact, entry)
			continue
		}

		g, err := glob.Compile(entry, '.', '/', ':')
		if err != nil {
			return nil, fmt.Errorf("origin %d (%q): %w", i, entry, err)
		}
		p.globs = append(p.globs, compiledPattern{pattern: entry, glob: g})
	}

	return p, nil
}

// Allows reports whether origin may make cross-origin requests.
func (p *Policy) Allows(origin string) bool {
	if origin == "" {
		return true
	}

	for _, allowed := range p.exact {
		if origin == allowed {
			return true
		}
		if !p.strict && strings.HasPrefix(origin, allowed+"/") {
			return true
		}
	}

	for _, g := range p.globs {
		if g.glob.Match(origin) {
			return true
		}
	}

	return false
}

// Strict reports whether sub-path prefix matching is disabled.
func (p *Policy) Strict() bool {
	return p.strict
}

// Entries returns the configured entries in order: exact first, then globs.
func (p *Policy) Entries() []string {
	out := make([]string, 0, len(p.exact)+len(p.globs))
	out = append(out, p.exact...)
	for _, g := range p.globs {
		out = append(out, g.pattern)
	}
	return out
}
