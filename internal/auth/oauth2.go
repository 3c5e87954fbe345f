package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/loykin/webstep/pkg/endpoint"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2 obtains bearer tokens with the client credentials grant. Tokens are
// cached until they expire; each fetch runs under the caller's context.
type OAuth2 struct {
	cc     *clientcredentials.Config
	client *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

func newOAuth2(c endpoint.OAuth2, timeout time.Duration, tlsCfg *tls.Config) (*OAuth2, error) {
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("oauth2: token_url is required for client_credentials grant")
	}
	clientID := strings.TrimSpace(c.ClientID)
	clientSecret := strings.TrimSpace(c.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("oauth2: client_id and client_secret are required for client_credentials grant")
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       c.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return &OAuth2{cc: cc, client: tokenClient(timeout, tlsCfg)}, nil
}

// tokenClient is the HTTP client used against the token endpoint. It shares
// the endpoint's timeout and TLS settings.
func tokenClient(timeout time.Duration, tlsCfg *tls.Config) *http.Client {
	hc := &http.Client{Timeout: timeout}
	if tlsCfg != nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = tlsCfg
		hc.Transport = tr
	}
	return hc
}

func (o *OAuth2) token(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.tok.Valid() {
		if ctx == nil {
			ctx = context.Background()
		}
		tok, err := o.cc.Token(context.WithValue(ctx, oauth2.HTTPClient, o.client))
		if err != nil {
			return "", fmt.Errorf("oauth2: acquire token: %w", err)
		}
		if tok.AccessToken == "" {
			return "", errors.New("oauth2: empty access token")
		}
		o.tok = tok
	}
	return "Bearer " + o.tok.AccessToken, nil
}
