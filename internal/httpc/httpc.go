// Package httpc executes resolved requests with a long-lived resty client.
package httpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/request"
)

var (
	ErrRemoteCall   = errors.New("httpc: remote call failed")
	ErrClientClosed = errors.New("httpc: client is closed")
)

// RemoteError reports a non-2xx response or a transport failure. Err is set
// only for transport failures.
type RemoteError struct {
	StatusCode int
	Reason     string
	Body       string
	URL        string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error calling service %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("error calling http method: HTTP status %d, HTTP status description %s, HTTP result %s",
		e.StatusCode, e.Reason, e.Body)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemoteCall }

// Result is a successful (2xx) response read to completion.
type Result struct {
	StatusCode int
	Reason     string
	Header     map[string]string
	Body       string
}

type Options struct {
	// Timeout bounds dialing, the TLS handshake, waiting for headers and the
	// whole exchange. Zero disables all of them.
	Timeout   time.Duration
	TLSConfig *tls.Config
	Logger    *common.Logger
}

// Client wraps one resty client and its transport for the lifetime of a step.
type Client struct {
	rc        *resty.Client
	transport *http.Transport
	logger    *common.Logger

	mu     sync.Mutex
	closed bool
}

// New builds the client. When a TLS config is supplied without MinVersion,
// TLS 1.2 is enforced.
func New(opts Options) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Timeout > 0 {
		tr.DialContext = (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext
		tr.TLSHandshakeTimeout = opts.Timeout
		tr.ResponseHeaderTimeout = opts.Timeout
	}
	if cfg := opts.TLSConfig; cfg != nil {
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		tr.TLSClientConfig = cfg
	}

	rc := resty.NewWithClient(&http.Client{Transport: tr, Timeout: opts.Timeout})
	rc.SetAllowGetMethodPayload(true)
	rc.SetPreRequestHook(dropGuessedContentType)

	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger().WithComponent("httpc")
	}
	return &Client{rc: rc, transport: tr, logger: logger}
}

// TLSConfig builds client TLS settings from endpoint options. It returns nil
// when nothing differs from the defaults.
func TLSConfig(insecure bool, minVersion string) (*tls.Config, error) {
	if !insecure && strings.TrimSpace(minVersion) == "" {
		return nil, nil
	}
	cfg := &tls.Config{InsecureSkipVerify: insecure} //nolint:gosec // opt-in per endpoint
	if strings.TrimSpace(minVersion) != "" {
		v := parseTLSVersion(minVersion)
		if v == 0 {
			return nil, fmt.Errorf("httpc: unsupported min tls version %q", minVersion)
		}
		cfg.MinVersion = v
	}
	return cfg, nil
}

// parseTLSVersion accepts forms like "1.2", "tls1.2", "TLS12". Unknown input yields 0.
func parseTLSVersion(s string) uint16 {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "tls")
	switch strings.TrimSpace(v) {
	case "1.0", "10":
		return tls.VersionTLS10
	case "1.1", "11":
		return tls.VersionTLS11
	case "1.2", "12":
		return tls.VersionTLS12
	case "1.3", "13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// Execute sends spec and reads the whole response. Anything outside 200-299
// is returned as a *RemoteError carrying the body text. Nothing is retried.
func (c *Client) Execute(ctx context.Context, spec *request.Spec) (*Result, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClientClosed
	}
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	target := spec.URL.String()
	method := spec.Kind.Method()
	log := c.logger.WithRequest(method, target)

	hasBody := spec.Kind.EnclosesEntity() && len(spec.Body) > 0
	if hasBody && spec.Header.Get(constants.HeaderContentType) == "" {
		ctx = context.WithValue(ctx, noContentTypeKey{}, true)
	}

	r := c.rc.R().SetContext(ctx).SetDoNotParseResponse(true)
	for k, vs := range spec.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if hasBody {
		r.SetBody(spec.Body)
	}
	log.Debug("sending request", "headers", common.GetGlobalMasker().MaskHeaders(spec.Header), "body_bytes", len(spec.Body))

	resp, err := r.Execute(method, target)
	if resp != nil && resp.RawResponse != nil {
		defer func() {
			if cerr := resp.RawResponse.Body.Close(); cerr != nil {
				log.Warn("failed to close response body", "error", cerr)
			}
		}()
	}
	if err != nil {
		return nil, &RemoteError{URL: common.MaskSensitiveData(target), Err: err}
	}

	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return nil, &RemoteError{URL: common.MaskSensitiveData(target), Err: err}
	}

	code := resp.StatusCode()
	reason := reasonPhrase(code, resp.Status())
	if code < 200 || code > 299 {
		log.Warn("remote call failed", "status", code, "reason", reason)
		return nil, &RemoteError{StatusCode: code, Reason: reason, Body: string(body), URL: common.MaskSensitiveData(target)}
	}
	log.Debug("request completed", "status", code, "body_bytes", len(body), "elapsed", resp.Time())

	return &Result{StatusCode: code, Reason: reason, Header: flatten(resp.Header()), Body: string(body)}, nil
}

// noContentTypeKey marks requests whose body was built without a content type.
type noContentTypeKey struct{}

// dropGuessedContentType removes the Content-Type resty sniffs from the body
// when none was configured.
func dropGuessedContentType(_ *resty.Client, req *http.Request) error {
	if unset, _ := req.Context().Value(noContentTypeKey{}).(bool); unset {
		req.Header.Del(constants.HeaderContentType)
	}
	return nil
}

// Close releases idle connections once. Later calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	return nil
}

func reasonPhrase(code int, status string) string {
	if r := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code))); r != "" {
		return r
	}
	return http.StatusText(code)
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}
