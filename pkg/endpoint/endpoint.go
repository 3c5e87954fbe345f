// Package endpoint describes the HTTP resource a web step talks to: base URL,
// default method, content type, timeout and credentials.
package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Security modes understood by the authenticator. Matching is case-insensitive.
const (
	SecurityNone    = "NONE"
	SecurityBasic   = "BASIC"
	SecurityToken   = "TOKEN"
	SecurityOAuth10 = "OAUTH_10"
	SecurityOAuth2  = "OAUTH_2"
	SecurityJWT     = "JWT"
)

var ErrMissingURL = errors.New("endpoint: url is required")

// OAuth2 holds client-credentials grant settings.
type OAuth2 struct {
	TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
	ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string   `mapstructure:"client_secret" yaml:"client_secret"`
	Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
}

// JWT holds settings for self-issued HS256 bearer tokens.
type JWT struct {
	Secret     string   `mapstructure:"secret" yaml:"secret"`
	Issuer     string   `mapstructure:"issuer" yaml:"issuer"`
	Subject    string   `mapstructure:"subject" yaml:"subject"`
	Audience   []string `mapstructure:"audience" yaml:"audience"`
	TTLSeconds int64    `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// Endpoint is immutable for the lifetime of a running step.
type Endpoint struct {
	URL         string `mapstructure:"url" yaml:"url"`
	HTTPMethod  string `mapstructure:"http_method" yaml:"http_method"`
	ContentType string `mapstructure:"content_type" yaml:"content_type"`
	TimeoutMS   int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	Security    string `mapstructure:"security" yaml:"security"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	Token       string `mapstructure:"token" yaml:"token"`
	OAuth2      OAuth2 `mapstructure:"oauth2" yaml:"oauth2"`
	JWT         JWT    `mapstructure:"jwt" yaml:"jwt"`
	// Insecure skips TLS verification; MinTLSVersion accepts "1.2" or "1.3".
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
}

// Decode builds an Endpoint from a loosely typed settings map. Scalars are
// weakly typed so "5000" is accepted for timeout_ms.
func Decode(settings map[string]interface{}) (*Endpoint, error) {
	var ep Endpoint
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &ep,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(settings); err != nil {
		return nil, fmt.Errorf("endpoint: decode settings: %w", err)
	}
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	return &ep, nil
}

// Validate checks the minimal settings every endpoint needs.
func (e *Endpoint) Validate() error {
	if strings.TrimSpace(e.URL) == "" {
		return ErrMissingURL
	}
	if e.TimeoutMS < 0 {
		return fmt.Errorf("endpoint: timeout_ms must not be negative: %d", e.TimeoutMS)
	}
	return nil
}

// Timeout is the single value applied to connect, request and read timeouts.
// Zero means no timeout.
func (e *Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// SecurityMode returns the normalized (upper-case, trimmed) security mode,
// defaulting to NONE.
func (e *Endpoint) SecurityMode() string {
	m := strings.ToUpper(strings.TrimSpace(e.Security))
	if m == "" {
		return SecurityNone
	}
	return m
}
