// Package param resolves ${name} tokens in step settings against flow
// parameters and the values carried by the inbound message.
package param

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// Context supports layered variables:
//   - Flow: parameters of the running flow (apply to every message)
//   - Message: named values carried by the inbound message
//
// Lookup gives precedence to Message over Flow. Zero values are usable.
type Context struct {
	Flow    map[string]string
	Message map[string]string
}

// Lookup searches Message first, then Flow.
func (c Context) Lookup(name string) (string, bool) {
	if v, ok := c.Message[name]; ok {
		return v, true
	}
	if v, ok := c.Flow[name]; ok {
		return v, true
	}
	return "", false
}

// Resolve replaces every resolvable ${name} token in s. Tokens that cannot be
// resolved are kept verbatim.
func (c Context) Resolve(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.TrimSpace(tok[2 : len(tok)-1])
		if v, ok := c.Lookup(name); ok {
			return v
		}
		return tok
	})
}

// ResolveMap returns a new map with every value resolved. The input is not modified.
func (c Context) ResolveMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = c.Resolve(v)
	}
	return out
}

// Tokens lists the distinct token names referenced by s, in order of first use.
func Tokens(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		n := strings.TrimSpace(m[1])
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
