package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loykin/webstep/pkg/endpoint"
)

const defaultJWTTTL = 300 // seconds

// JWT signs a short-lived HS256 token for every request.
type JWT struct {
	c   endpoint.JWT
	now func() time.Time
}

func newJWT(c endpoint.JWT) (*JWT, error) {
	if len(c.Secret) == 0 {
		return nil, errors.New("jwt: secret required")
	}
	return &JWT{c: c, now: time.Now}, nil
}

func (j *JWT) issue() (string, error) {
	now := j.now()
	ttl := j.c.TTLSeconds
	if ttl <= 0 {
		ttl = defaultJWTTTL
	}
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Unix() + ttl,
	}
	if j.c.Subject != "" {
		claims["sub"] = j.c.Subject
	}
	if j.c.Issuer != "" {
		claims["iss"] = j.c.Issuer
	}
	if len(j.c.Audience) > 0 {
		claims["aud"] = j.c.Audience
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(j.c.Secret))
}
