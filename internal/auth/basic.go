package auth

import (
	"encoding/base64"
)

// Basic sends base64(username:password). Empty parts are sent as configured.
type Basic struct {
	Username string
	Password string
}

func (b Basic) headerValue() string {
	cred := base64.StdEncoding.EncodeToString([]byte(b.Username + ":" + b.Password))
	return "Basic " + cred
}
