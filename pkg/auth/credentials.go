package auth

import (
	"crypto/subtle"
	"regexp"
	"strings"
)

// RouteClass partitions the API surface by the kind of caller a credential
// admits.
type RouteClass string

const (
	// RouteClassInternal covers first-party, session-protected routes.
	RouteClassInternal RouteClass = "internal"
	// RouteClassExternal covers partner-facing routes that require only an
	// API key.
	RouteClassExternal RouteClass = "external"
)

// ServiceCredential is a static API key entitlement: which route classes the
// holder may call and from which origins.
type ServiceCredential struct {
	// Key is the opaque value presented in the X-API-Key header.
	Key string `json:"key"`
	// Name identifies the credential in logs and audit entries; never the
	// key itself.
	Name string `json:"name"`
	// RouteClasses lists the route classes this credential may call.
	RouteClasses []RouteClass `json:"route_classes"`
	// Origins lists allowed origin patterns. A pattern ending in ":*"
	// matches any numeric port on the same scheme and host; any other
	// pattern is a prefix match. An empty list allows all origins.
	Origins []string `json:"origins,omitempty"`
}

// AllowsRouteClass reports whether the credential admits the given route class.
func (c *ServiceCredential) AllowsRouteClass(rc RouteClass) bool {
	for _, allowed := range c.RouteClasses {
		if allowed == rc {
			return true
		}
	}
	return false
}

// originMatcher is a precompiled form of a single origin pattern.
type originMatcher struct {
	prefix string
	re     *regexp.Regexp // non-nil only for wildcard-port patterns
}

func (m originMatcher) matches(origin string) bool {
	if m.re != nil {
		return m.re.MatchString(origin)
	}
	return strings.HasPrefix(origin, m.prefix)
}

func compileOriginMatchers(patterns []string) []originMatcher {
	matchers := make([]originMatcher, 0, len(patterns))
	for _, p := range patterns {
		if base, ok := strings.CutSuffix(p, ":*"); ok {
			matchers = append(matchers, originMatcher{
				prefix: p,
				re:     regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `:\d+(/|$)`),
			})
			continue
		}
		matchers = append(matchers, originMatcher{prefix: p})
	}
	return matchers
}

// Registry is the immutable set of service credentials, loaded once at
// startup. Lookups compare keys in constant time.
type Registry struct {
	credentials []ServiceCredential
	matchers    [][]originMatcher
}

// NewRegistry builds a credential registry. Keys must be non-empty and
// unique; origin patterns are compiled once here.
func NewRegistry(credentials []ServiceCredential) (*Registry, error) {
	seen := make(map[string]struct{}, len(credentials))
	matchers := make([][]originMatcher, len(credentials))
	for i, cred := range credentials {
		if cred.Key == "" {
			return nil, ErrEmptyCredential
		}
		if _, dup := seen[cred.Key]; dup {
			return nil, ErrDuplicateCredential
		}
		seen[cred.Key] = struct{}{}
		matchers[i] = compileOriginMatchers(cred.Origins)
	}
	return &Registry{credentials: credentials, matchers: matchers}, nil
}

// Len returns the number of registered credentials.
func (r *Registry) Len() int {
	return len(r.credentials)
}

// Resolve returns the credential matching the presented key, or nil. Every
// registered key is compared in constant time so the lookup leaks no timing
// signal about key prefixes.
func (r *Registry) Resolve(presented string) *ServiceCredential {
	if presented == "" {
		return nil
	}
	var found *ServiceCredential
	for i := range r.credentials {
		if subtle.ConstantTimeCompare([]byte(r.credentials[i].Key), []byte(presented)) == 1 {
			found = &r.credentials[i]
		}
	}
	return found
}

// OriginAllowed reports whether the given Origin header value is acceptable
// for the credential. An absent origin is allowed here; whether that is a
// warning or a hard failure is the gate's strict-mode decision. A credential
// with no origin patterns allows every origin.
func (r *Registry) OriginAllowed(cred *ServiceCredential, origin string) bool {
	if origin == "" {
		return true
	}
	for i := range r.credentials {
		if &r.credentials[i] != cred {
			continue
		}
		if len(r.matchers[i]) == 0 {
			return true
		}
		for _, m := range r.matchers[i] {
			if m.matches(origin) {
				return true
			}
		}
		return false
	}
	return false
}
