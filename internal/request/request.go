// Package request turns resolved step settings into a concrete HTTP request
// description that the executor can send.
package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/loykin/webstep/internal/auth"
	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/util"
	"github.com/loykin/webstep/pkg/endpoint"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	ErrMalformedURI   = errors.New("request: malformed uri")
	ErrEncoding       = errors.New("request: body cannot be encoded")
	ErrUnknownCharset = errors.New("request: unknown character encoding")
)

// Spec is a fully resolved request.
type Spec struct {
	Kind    Kind
	URL     *url.URL
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

// Builder assembles Specs for one endpoint. It holds no per-request state.
type Builder struct {
	Endpoint *endpoint.Endpoint
	Method   Method
	Auth     auth.Authenticator
	Charset  string
	Logger   *common.Logger
}

// LookupCharset resolves an encoding name. IANA names are tried first, then
// the WHATWG labels. Blank means UTF-8.
func LookupCharset(name string) (encoding.Encoding, error) {
	name = util.TrimWithDefault(name, constants.DefaultCharset)
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, name)
}

// Build creates the request for path, which must already contain the base
// URL, relative path and query. headers are applied in key order, then the
// endpoint content type, then authentication. A blank body is never sent.
func (b *Builder) Build(ctx context.Context, path string, headers map[string]string, body string) (*Spec, error) {
	u, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", ErrMalformedURI, path)
	}

	kind, err := KindFor(b.Method, body)
	if err != nil {
		return nil, err
	}
	spec := &Spec{Kind: kind, URL: u, Header: http.Header{}}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		spec.Header.Set(k, headers[k])
	}

	if b.Endpoint != nil {
		if ct, ok := util.TrimEmptyCheck(b.Endpoint.ContentType); ok {
			spec.Header.Set(constants.HeaderContentType, ct)
		}
		spec.Timeout = b.Endpoint.Timeout()
	}
	if err := auth.Apply(ctx, spec.Header, b.Auth); err != nil {
		return nil, err
	}

	switch {
	case kind.EnclosesEntity() && !util.IsBlank(body):
		if spec.Body, err = b.encode(body); err != nil {
			return nil, err
		}
	case kind == KindDelete && !util.IsBlank(body):
		b.logger().Warn("DELETE does not carry a body, dropping it", "url", common.MaskSensitiveData(u.String()))
	}
	return spec, nil
}

func (b *Builder) encode(body string) ([]byte, error) {
	enc, err := LookupCharset(b.Charset)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return []byte(body), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w to %s: %v", ErrEncoding, b.Charset, err)
	}
	return out, nil
}

func (b *Builder) logger() *common.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return common.GetLogger().WithComponent("request")
}
