package scrape

import (
	"net/url"
	"strings"
)

// AccessPolicy holds the source site's disallowed path prefixes. URLs under
// a disallowed prefix are never fetched.
type AccessPolicy struct {
	prefixes []string
}

func NewAccessPolicy(prefixes []string) AccessPolicy {
	var ps []string
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			ps = append(ps, p)
		}
	}
	return AccessPolicy{prefixes: ps}
}

func (p AccessPolicy) Allows(u *url.URL) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	return true
}
