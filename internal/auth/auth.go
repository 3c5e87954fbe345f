// Package auth decorates outgoing requests with credentials taken from the
// endpoint configuration. The set of schemes is closed; New selects one and
// Apply is the single place that writes the Authorization header.
package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/pkg/endpoint"
)

var (
	ErrOAuth1Unsupported = errors.New("auth: OAuth 1.0 is not supported")
	ErrUnknownMode       = errors.New("auth: unknown security mode")
)

// Authenticator is one of None, Basic, Bearer, OAuth1, OAuth2 or JWT.
type Authenticator interface {
	// Mode returns the endpoint security mode the authenticator was built for.
	Mode() string
	sealed()
}

// None leaves requests untouched.
type None struct{}

// Bearer sends a fixed token.
type Bearer struct {
	Token string
}

// OAuth1 is accepted as a configuration value but cannot be applied.
type OAuth1 struct{}

func (None) Mode() string    { return endpoint.SecurityNone }
func (Basic) Mode() string   { return endpoint.SecurityBasic }
func (Bearer) Mode() string  { return endpoint.SecurityToken }
func (OAuth1) Mode() string  { return endpoint.SecurityOAuth10 }
func (*OAuth2) Mode() string { return endpoint.SecurityOAuth2 }
func (*JWT) Mode() string    { return endpoint.SecurityJWT }

func (None) sealed()    {}
func (Basic) sealed()   {}
func (Bearer) sealed()  {}
func (OAuth1) sealed()  {}
func (*OAuth2) sealed() {}
func (*JWT) sealed()    {}

// Option tunes the HTTP client authenticators use for their own calls.
type Option func(*options)

type options struct {
	tlsConfig *tls.Config
}

// WithTLSConfig applies cfg to token endpoint calls.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) { o.tlsConfig = cfg }
}

// New selects the authenticator for the endpoint's security mode. OAuth 1.0
// and unknown modes fail here so a step refuses to start.
func New(ep *endpoint.Endpoint, opts ...Option) (Authenticator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if ep == nil {
		return None{}, nil
	}
	switch mode := ep.SecurityMode(); mode {
	case endpoint.SecurityNone:
		return None{}, nil
	case endpoint.SecurityBasic:
		return Basic{Username: ep.Username, Password: ep.Password}, nil
	case endpoint.SecurityToken, "BEARER":
		return Bearer{Token: ep.Token}, nil
	case endpoint.SecurityOAuth10, "OAUTH10", "OAUTH1":
		return nil, ErrOAuth1Unsupported
	case endpoint.SecurityOAuth2, "OAUTH2":
		return newOAuth2(ep.OAuth2, ep.Timeout(), o.tlsConfig)
	case endpoint.SecurityJWT:
		return newJWT(ep.JWT)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

// Apply writes the Authorization header for a, replacing any value already present.
func Apply(ctx context.Context, h http.Header, a Authenticator) error {
	var value string
	switch v := a.(type) {
	case nil, None:
		return nil
	case Basic:
		value = v.headerValue()
	case Bearer:
		value = "Bearer " + v.Token
	case OAuth1:
		return ErrOAuth1Unsupported
	case *OAuth2:
		tok, err := v.token(ctx)
		if err != nil {
			return err
		}
		value = tok
	case *JWT:
		tok, err := v.issue()
		if err != nil {
			return err
		}
		value = "Bearer " + tok
	default:
		return fmt.Errorf("%w: %T", ErrUnknownMode, a)
	}
	h.Set(constants.HeaderAuthorization, value)
	return nil
}
