package common

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
)

// Masked is the replacement emitted for sensitive values.
const Masked = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password", "api_key")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Specific keys to mask (case-insensitive)
}

func keyValuePattern(name string, keys ...string) SensitivePattern {
	re := regexp.MustCompile(fmt.Sprintf(`(?i)(%s)(["']?\s*[:=]\s*["']?)([^"'&,}\]\s]+)`, strings.Join(keys, "|")))
	return SensitivePattern{Name: name, Regex: re, Replacement: "${1}${2}" + Masked, Keys: keys}
}

// DefaultSensitivePatterns contains common patterns for credentials seen in
// endpoint settings, request headers and URLs.
var DefaultSensitivePatterns = []SensitivePattern{
	keyValuePattern("password", "password", "passwd", "pwd"),
	keyValuePattern("api_key", "api_key", "apikey", "api-key"),
	keyValuePattern("token", "token", "access_token", "auth_token"),
	keyValuePattern("secret", "secret", "client_secret"),
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + Masked,
	},
	{
		Name:        "basic_auth",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + Masked,
		Keys:        []string{"authorization", "proxy-authorization"},
	},
	{
		Name:        "url_userinfo",
		Regex:       regexp.MustCompile(`(://[^:/@\s]+):[^@/\s]+@`),
		Replacement: "${1}:" + Masked + "@",
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: patterns}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	result := input
	for _, p := range m.patterns {
		if p.Regex != nil {
			result = p.Regex.ReplaceAllString(result, p.Replacement)
		}
	}
	return result
}

func (m *Masker) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == k {
				return true
			}
		}
	}
	return false
}

// MaskValue masks sensitive information based on key-value context.
// Non-string values are returned untouched unless the key itself is sensitive.
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	if m.isSensitiveKey(key) {
		return Masked
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	return m.MaskString(s)
}

// MaskHeaders renders a header set as a flat, key-sorted map suitable for logging.
func (m *Masker) MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.Join(h[k], ", ")
		if masked, ok := m.MaskValue(k, v).(string); ok {
			v = masked
		}
		out[k] = v
	}
	return out
}

// Global masker instance
var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
