// Package channel derives the backend keyspace namespace for a chat channel.
//
// Every per-channel document (messages, presence, reactions) is addressed by
// the key produced here; nothing else may construct channel identifiers.
package channel

import "strings"

// Key identifies one chat channel in the backend keyspace.
type Key string

// DeriveKey maps a (site, token) pair to its channel key. The site is part of
// the key so the same token string on two different sites never shares a
// channel. Both parts are collapsed to alphanumerics; the collapse is lossy
// ("ABC-123" and "ABC123" collide) which is accepted for contract addresses
// since they are alphanumeric to begin with.
//
// Pure function. An empty token yields an empty key; callers must reject
// empty tokens before reaching here.
func DeriveKey(site, token string) Key {
	t := stripNonAlnum(token)
	if t == "" {
		return ""
	}
	s := stripNonAlnum(site)
	if s == "" {
		return Key(t)
	}
	return Key(s + "-" + t)
}

// stripNonAlnum removes every character outside [A-Za-z0-9].
func stripNonAlnum(in string) string {
	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
