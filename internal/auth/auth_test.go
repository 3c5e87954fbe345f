package auth

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/webstep/pkg/endpoint"
)

func TestNew_SelectsByMode(t *testing.T) {
	tests := []struct {
		security string
		want     string
	}{
		{"", endpoint.SecurityNone},
		{"none", endpoint.SecurityNone},
		{"Basic", endpoint.SecurityBasic},
		{"TOKEN", endpoint.SecurityToken},
		{"bearer", endpoint.SecurityToken},
	}
	for _, tt := range tests {
		a, err := New(&endpoint.Endpoint{URL: "http://x", Security: tt.security})
		if err != nil {
			t.Fatalf("security %q: unexpected err %v", tt.security, err)
		}
		if a.Mode() != tt.want {
			t.Fatalf("security %q: expected %s, got %s", tt.security, tt.want, a.Mode())
		}
	}
}

func TestNew_OAuth1FailsFast(t *testing.T) {
	_, err := New(&endpoint.Endpoint{URL: "http://x", Security: "OAUTH_10"})
	if !errors.Is(err, ErrOAuth1Unsupported) {
		t.Fatalf("expected ErrOAuth1Unsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected clear message, got %q", err.Error())
	}
}

func TestNew_UnknownMode(t *testing.T) {
	if _, err := New(&endpoint.Endpoint{URL: "http://x", Security: "kerberos"}); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestApply_None_NoOp(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "keep")
	if err := Apply(context.Background(), h, None{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if h.Get("Authorization") != "keep" {
		t.Fatalf("expected header untouched, got %q", h.Get("Authorization"))
	}
}

func TestApply_Basic(t *testing.T) {
	h := http.Header{}
	if err := Apply(context.Background(), h, Basic{Username: "user", Password: "pass"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))
	if got := h.Get("Authorization"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApply_BearerOverwritesExisting(t *testing.T) {
	h := http.Header{}
	h.Set("authorization", "from-template")
	if err := Apply(context.Background(), h, Bearer{Token: "t0k"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if vals := h.Values("Authorization"); len(vals) != 1 || vals[0] != "Bearer t0k" {
		t.Fatalf("expected single overwritten value, got %v", vals)
	}
}

func TestApply_OAuth1Variant(t *testing.T) {
	if err := Apply(context.Background(), http.Header{}, OAuth1{}); !errors.Is(err, ErrOAuth1Unsupported) {
		t.Fatalf("expected ErrOAuth1Unsupported, got %v", err)
	}
}

func TestApply_OAuth2ClientCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("client_id") != "cid" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	a, err := New(&endpoint.Endpoint{
		URL:      "http://x",
		Security: "oauth_2",
		OAuth2:   endpoint.OAuth2{TokenURL: srv.URL, ClientID: "cid", ClientSecret: "sec"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := 0; i < 2; i++ {
		h := http.Header{}
		if err := Apply(context.Background(), h, a); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if h.Get("Authorization") != "Bearer abc" {
			t.Fatalf("unexpected header %q", h.Get("Authorization"))
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached token (1 call), got %d", calls.Load())
	}
}

func hangingTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"late","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApply_OAuth2HonorsContextDeadline(t *testing.T) {
	srv := hangingTokenServer(t)
	a, err := New(&endpoint.Endpoint{
		URL:      "http://x",
		Security: "oauth_2",
		OAuth2:   endpoint.OAuth2{TokenURL: srv.URL, ClientID: "cid", ClientSecret: "sec"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	h := http.Header{}
	start := time.Now()
	err = Apply(ctx, h, a)
	if err == nil {
		t.Fatalf("expected token fetch to fail, got header %q", h.Get("Authorization"))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("deadline ignored: took %v", elapsed)
	}
	if h.Get("Authorization") != "" {
		t.Fatalf("header must stay unset on failure, got %q", h.Get("Authorization"))
	}
}

func TestApply_OAuth2HonorsEndpointTimeout(t *testing.T) {
	srv := hangingTokenServer(t)
	a, err := New(&endpoint.Endpoint{
		URL:       "http://x",
		Security:  "oauth_2",
		TimeoutMS: 100,
		OAuth2:    endpoint.OAuth2{TokenURL: srv.URL, ClientID: "cid", ClientSecret: "sec"},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	start := time.Now()
	if err := Apply(context.Background(), http.Header{}, a); err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("endpoint timeout ignored: took %v", elapsed)
	}
}

func TestApply_OAuth2UsesTLSConfig(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tls","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	ep := &endpoint.Endpoint{
		URL:      "http://x",
		Security: "oauth_2",
		OAuth2:   endpoint.OAuth2{TokenURL: srv.URL, ClientID: "cid", ClientSecret: "sec"},
	}
	strict, err := New(ep)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := Apply(context.Background(), http.Header{}, strict); err == nil {
		t.Fatalf("expected certificate error without a TLS config")
	}

	insecure, err := New(ep, WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) //nolint:gosec // self-signed test server
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	h := http.Header{}
	if err := Apply(context.Background(), h, insecure); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if h.Get("Authorization") != "Bearer tls" {
		t.Fatalf("unexpected header %q", h.Get("Authorization"))
	}
}

func TestNew_OAuth2RequiresSettings(t *testing.T) {
	if _, err := New(&endpoint.Endpoint{URL: "http://x", Security: "OAUTH_2"}); err == nil {
		t.Fatalf("expected error without token_url")
	}
}

func TestApply_JWT(t *testing.T) {
	a, err := New(&endpoint.Endpoint{
		URL:      "http://x",
		Security: "jwt",
		JWT:      endpoint.JWT{Secret: "s3cr3t", Subject: "svc", TTLSeconds: 60},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	h := http.Header{}
	if err := Apply(context.Background(), h, a); err != nil {
		t.Fatalf("apply: %v", err)
	}
	raw := strings.TrimPrefix(h.Get("Authorization"), "Bearer ")
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("s3cr3t"), nil },
		jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(time.Minute))
	if err != nil || !tok.Valid {
		t.Fatalf("expected valid token, got err=%v", err)
	}
	sub, _ := tok.Claims.GetSubject()
	if sub != "svc" {
		t.Fatalf("unexpected subject %q", sub)
	}
}

func TestNew_JWTRequiresSecret(t *testing.T) {
	if _, err := New(&endpoint.Endpoint{URL: "http://x", Security: "JWT"}); err == nil {
		t.Fatalf("expected error without secret")
	}
}
