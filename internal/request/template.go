package request

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/loykin/webstep/internal/util"
)

// ParseBlock reads "key: value" lines. Only the first colon separates key and
// value; lines without one or with an empty key are skipped. Later keys win.
func ParseBlock(text string) map[string]string {
	return parseBlock(text, func(k string) string { return k })
}

// ParseHeaderBlock is ParseBlock with header names canonicalized, so lines
// that differ only in the case of their name collapse and the last one wins.
func ParseHeaderBlock(text string) map[string]string {
	return parseBlock(text, http.CanonicalHeaderKey)
}

func parseBlock(text string, key func(string) string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		k, v, ok := strings.Cut(strings.TrimSuffix(line, "\r"), ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[key(k)] = strings.TrimSpace(v)
	}
	return out
}

// AssemblePath appends relative and the encoded query parameters to base.
// With a blank relative path base is returned as is and params are ignored.
func AssemblePath(base, relative string, params map[string]string) string {
	if util.IsBlank(relative) {
		return base
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString(relative)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(escape(k))
		sb.WriteByte('=')
		sb.WriteString(escape(params[k]))
	}
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
