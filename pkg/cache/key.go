package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// KeyPrefix namespaces every page key in Redis.
const KeyPrefix = "hubspot:page"

const globalScope = "global"

// Key identifies one stored page.
type Key struct {
	// Path is the request path, e.g. "/contacts/v1/lists/42/contacts/all".
	Path string

	// Query holds the request query; encoding sorts it by name.
	Query url.Values

	// Scope separates credentials; empty means unscoped.
	Scope string
}

// String renders the Redis key.
//
//	hubspot:page:1a2b3c4d5e6f:contacts/v1/lists/42/contacts/all?count=20&vidOffset=5
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(scopePrefix(k.Scope))
	b.WriteString(strings.Trim(k.Path, "/"))
	if len(k.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(k.Query.Encode())
	}
	return b.String()
}

// UnderPattern returns the SCAN pattern matching every page stored below dir
// for scope.
func UnderPattern(scope, dir string) string {
	dir = strings.Trim(dir, "/")
	return scopePrefix(scope) + escapeGlob(dir) + "/*"
}

// ScopeFor derives a short, non-reversible scope from a credential.
func ScopeFor(credential string) string {
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:6])
}

func scopePrefix(scope string) string {
	if scope == "" {
		scope = globalScope
	}
	return KeyPrefix + ":" + scope + ":"
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
