package bridge

import (
	"net/url"
	"strings"
)

// Allowlist decides which message origins may talk to the signup coordinator.
// Entries are domain suffixes; "facebook.com" admits https://facebook.com and
// https://www.facebook.com but not https://evilfacebook.com.
type Allowlist struct {
	suffixes []string
}

func NewAllowlist(suffixes []string) Allowlist {
	out := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
		if s != "" {
			out = append(out, s)
		}
	}
	return Allowlist{suffixes: out}
}

// Allows reports whether origin (scheme://host[:port]) is trusted.
func (a Allowlist) Allows(origin string) bool {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range a.suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}
