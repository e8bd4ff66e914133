// Package urlnorm canonicalizes URLs so that two spellings of the same page
// compare equal in the visited set.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// Normalize returns the canonical form of rawURL.
//
// The fragment is dropped, query parameters are kept but sorted by key,
// trailing slashes are removed from the path (the root path "/" is kept so an
// origin always normalizes to "scheme://host/"), and the result is lowercased.
// Unparseable input falls back to plain string trimming; Normalize never fails.
func Normalize(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	u, err := url.Parse(s)
	if err != nil {
		return fallback(s)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = sortQuery(u.RawQuery)
	u.ForceQuery = false

	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	if trimmed := trimSlashes(u.Path); trimmed != u.Path {
		u.Path = trimmed
		u.RawPath = trimSlashes(u.RawPath)
	}

	return strings.ToLower(u.String())
}

// fallback handles strings url.Parse rejects. Trailing slashes and spaces
// are trimmed until neither is left; if that makes s parseable it goes
// through Normalize again.
func fallback(s string) string {
	t := s
	for {
		next := trimSlashes(strings.TrimSpace(t))
		if next == t {
			break
		}
		t = next
	}
	if t != s {
		return Normalize(t)
	}
	return strings.ToLower(t)
}

// trimSlashes removes trailing slashes but never reduces "/" to "".
func trimSlashes(p string) string {
	if len(p) <= 1 {
		return p
	}
	t := strings.TrimRight(p, "/")
	if t == "" {
		return "/"
	}
	return t
}

// sortQuery reorders "a=1&b=2" style parameters by lowercased key. Values
// keep their encoding but lose surrounding spaces; duplicate keys keep their
// order.
func sortQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	params := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	sort.SliceStable(params, func(i, j int) bool {
		return queryKey(params[i]) < queryKey(params[j])
	})
	return strings.Join(params, "&")
}

func queryKey(param string) string {
	key, _, _ := strings.Cut(param, "=")
	return strings.ToLower(key)
}

// Set is a set of normalized URLs. The zero value is not usable; use NewSet.
type Set struct {
	m     map[string]struct{}
	order []string
}

// NewSet returns a set seeded with the normalized forms of urls.
func NewSet(urls ...string) *Set {
	s := &Set{m: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add normalizes rawURL and inserts it. It reports whether the URL was new.
func (s *Set) Add(rawURL string) bool {
	n := Normalize(rawURL)
	if _, ok := s.m[n]; ok {
		return false
	}
	s.m[n] = struct{}{}
	s.order = append(s.order, n)
	return true
}

// Contains reports whether the normalized form of rawURL is in the set.
func (s *Set) Contains(rawURL string) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[Normalize(rawURL)]
	return ok
}

// Len returns the number of distinct normalized URLs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// List returns the normalized URLs in insertion order.
func (s *Set) List() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
