package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/text/unicode/norm"

	"github.com/lyzr/catalog-ingest/common/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UsernameKey is the context key for storing the authenticated username
	UsernameKey ContextKey = "username"
)

// WWWAuthenticate is sent with every 401 response
const WWWAuthenticate = `Basic realm="Access to API endpoint" charset="UTF-8"`

var (
	ErrInsecureTransport  = errors.New("you must use an HTTPS connection")
	ErrMissingHeader      = errors.New("missing authorization header")
	ErrMalformedHeader    = errors.New("malformed authorization header")
	ErrUnsupportedScheme  = errors.New("unsupported authorization scheme")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Credentials is a basic auth user/password pair
type Credentials struct {
	User string
	Pass string
}

// CheckTransport requires HTTPS unless the host is localhost
func CheckTransport(scheme, host string) error {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if scheme != "https" && host != "localhost" {
		return ErrInsecureTransport
	}
	return nil
}

// ParseBasic extracts credentials from an Authorization header value.
// The decoded credential is read as UTF-8, with invalid bytes replaced, and
// normalized to NFC.
func ParseBasic(header string) (Credentials, error) {
	if header == "" {
		return Credentials{}, ErrMissingHeader
	}

	parts := strings.Split(header, " ")
	scheme := parts[0]
	var encoded string
	if len(parts) > 1 {
		encoded = parts[1]
	}

	if encoded == "" {
		return Credentials{}, ErrMalformedHeader
	}

	if scheme != "Basic" {
		return Credentials{}, ErrUnsupportedScheme
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return Credentials{}, ErrMalformedHeader
	}

	decoded := norm.NFC.String(strings.ToValidUTF8(string(raw), "\uFFFD"))

	user, pass, ok := strings.Cut(decoded, ":")
	if !ok {
		return Credentials{}, ErrMalformedHeader
	}

	return Credentials{User: user, Pass: pass}, nil
}

// decodeBase64 accepts padded and unpadded standard base64
func decodeBase64(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Verify compares "user:pass" byte strings in constant time. A length
// mismatch fails before the comparison.
func (c Credentials) Verify(expected Credentials) error {
	actual := []byte(c.User + ":" + c.Pass)
	want := []byte(expected.User + ":" + expected.Pass)

	if len(actual) != len(want) {
		return ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare(actual, want) != 1 {
		return ErrInvalidCredentials
	}

	return nil
}

// Authenticate runs the transport check, then parses and verifies the
// request's credentials.
func Authenticate(r *http.Request, scheme string, expected Credentials) (Credentials, error) {
	if err := CheckTransport(scheme, r.Host); err != nil {
		return Credentials{}, err
	}

	creds, err := ParseBasic(r.Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return Credentials{}, err
	}

	if err := creds.Verify(expected); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

// BasicAuth rejects requests without valid credentials. Insecure transport is
// a 400; every credential problem is a 401 carrying WWW-Authenticate.
//
// Usage:
//
//	e.Use(middleware.BasicAuth(expected, skipper, log))
//
// Accessing in handlers:
//
//	username := middleware.GetUsername(c)
func BasicAuth(expected Credentials, skipper echomw.Skipper, log *logger.Logger) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = echomw.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			creds, err := Authenticate(c.Request(), c.Scheme(), expected)
			if err != nil {
				log.WithContext(c.Request().Context()).Warn("authentication failed",
					"reason", err.Error(),
					"path", c.Request().URL.Path,
				)

				if errors.Is(err, ErrInsecureTransport) {
					return echo.NewHTTPError(http.StatusBadRequest, err.Error())
				}

				c.Response().Header().Set(echo.HeaderWWWAuthenticate, WWWAuthenticate)
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(string(UsernameKey), creds.User)
			return next(c)
		}
	}
}

// GetUsername retrieves the username from the request context
// Returns empty string if not set
func GetUsername(c echo.Context) string {
	username, _ := c.Get(string(UsernameKey)).(string)
	return username
}
