// Package wayback understands archive-wrapped URLs: it unwraps them back to the
// host and path of the original site and parses snapshot lists into periods.
package wayback

import (
	"net/url"
	"regexp"
	"strings"
)

// EffectiveLocation is the real (host, path+query) a possibly archive-wrapped
// URL points at.
type EffectiveLocation struct {
	Host         string
	PathAndQuery string
}

// archivedPath matches the replay layout /web/<timestamp>[modifier_]/<embedded url>.
// Only embedded URLs that carry an http(s) scheme count as wrapped.
var archivedPath = regexp.MustCompile(`(?i)/web/\d+(?:[a-z]{2}_)?/(https?:/.*)$`)

// opaqueScheme matches scheme-only references such as "mailto:" that must not
// be mistaken for a host with a port.
var opaqueScheme = regexp.MustCompile(`^(?i)[a-z][a-z0-9+.-]*:[^0-9/]`)

// singleSlashScheme matches a scheme separator collapsed to one slash.
var singleSlashScheme = regexp.MustCompile(`(?i)^(https?):/([^/])`)

// Normalize resolves raw to the location it effectively refers to. It never
// fails: input that cannot be parsed yields an empty host and raw as the path.
func Normalize(raw string) EffectiveLocation {
	target := Unwrap(raw)
	if !strings.Contains(target, "://") && !strings.HasPrefix(target, "/") && !opaqueScheme.MatchString(target) {
		// Host-led input such as "shop.example/sale".
		target = "//" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return EffectiveLocation{PathAndQuery: raw}
	}

	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return EffectiveLocation{
		Host:         CanonicalHost(u.Host),
		PathAndQuery: path,
	}
}

// Unwrap returns the embedded original URL of an archive-wrapped raw URL with
// its scheme separator repaired. Other input is returned unchanged.
func Unwrap(raw string) string {
	m := archivedPath.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return RepairScheme(m[1])
}

// RepairScheme turns "http:/x" into "http://x" and "https:/x" into "https://x".
func RepairScheme(raw string) string {
	return singleSlashScheme.ReplaceAllString(raw, "$1://$2")
}

// CanonicalHost lowercases h and strips any port and leading "www.".
func CanonicalHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end > 0 {
			h = h[1:end]
		}
	} else if i := strings.LastIndex(h, ":"); i >= 0 && strings.Count(h, ":") == 1 {
		h = h[:i]
	}
	return strings.TrimPrefix(h, "www.")
}
