package realtime

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may open realtime connections.
// The zero value allows same-origin requests only.
type OriginPolicy struct {
	all     bool
	origins []string
	allowed map[string]bool
}

// NewOriginPolicy accepts exact origins such as "https://ops.example.com";
// "*" allows every origin.
func NewOriginPolicy(origins []string) OriginPolicy {
	p := OriginPolicy{allowed: make(map[string]bool)}
	for _, raw := range origins {
		origin := strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
		switch {
		case origin == "":
			continue
		case origin == "*":
			p.all = true
		case !p.allowed[origin]:
			p.allowed[origin] = true
			p.origins = append(p.origins, origin)
		}
	}
	return p
}

func (p OriginPolicy) AllowAll() bool {
	return p.all
}

// Origins lists the explicit origins; it is empty when every origin is allowed.
func (p OriginPolicy) Origins() []string {
	if p.all {
		return nil
	}
	return append([]string(nil), p.origins...)
}

// Allow reports whether r may be upgraded. Requests without an Origin header
// come from non-browser clients and are allowed.
func (p OriginPolicy) Allow(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.all {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return p.allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
}
