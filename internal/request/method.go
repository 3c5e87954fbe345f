package request

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/loykin/webstep/internal/util"
)

var ErrUnsupportedMethod = errors.New("request: unsupported http method")

// Method is a configured HTTP method that passed ParseMethod.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodPost   Method = http.MethodPost
	MethodDelete Method = http.MethodDelete
)

// ParseMethod accepts GET, PUT, PATCH, POST and DELETE in any case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodGet, MethodPut, MethodPatch, MethodPost, MethodDelete:
		return m, nil
	case "":
		return "", fmt.Errorf("%w: empty", ErrUnsupportedMethod)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, s)
	}
}

// Kind is the request shape actually sent. GET is split in two so a body can
// be carried without pretending to be another method.
type Kind int

const (
	KindGet Kind = iota
	KindGetWithBody
	KindPut
	KindPatch
	KindPost
	KindDelete
)

// KindFor maps a method and the request body to a Kind. A GET only carries
// the body when it is not blank. Methods outside the supported set are
// rejected.
func KindFor(m Method, body string) (Kind, error) {
	switch m {
	case MethodGet:
		if util.IsBlank(body) {
			return KindGet, nil
		}
		return KindGetWithBody, nil
	case MethodPut:
		return KindPut, nil
	case MethodPatch:
		return KindPatch, nil
	case MethodPost:
		return KindPost, nil
	case MethodDelete:
		return KindDelete, nil
	case "":
		return 0, fmt.Errorf("%w: empty", ErrUnsupportedMethod)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedMethod, m)
	}
}

// Method is the verb written on the wire.
func (k Kind) Method() string {
	switch k {
	case KindGet, KindGetWithBody:
		return http.MethodGet
	case KindPut:
		return http.MethodPut
	case KindPatch:
		return http.MethodPatch
	case KindPost:
		return http.MethodPost
	default:
		return http.MethodDelete
	}
}

// EnclosesEntity reports whether requests of this kind carry a body.
func (k Kind) EnclosesEntity() bool {
	switch k {
	case KindGetWithBody, KindPut, KindPatch, KindPost:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if k == KindGetWithBody {
		return "GET+body"
	}
	return k.Method()
}
