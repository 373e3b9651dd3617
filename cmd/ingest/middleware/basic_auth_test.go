package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/catalog-ingest/common/logger"
	commonmw "github.com/lyzr/catalog-ingest/common/middleware"
	"github.com/lyzr/catalog-ingest/common/ratelimit"
)

var expected = Credentials{User: "user", Pass: "pass"}

func TestParseBasic(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    Credentials
		wantErr error
	}{
		{name: "valid", header: "Basic dXNlcjpwYXNz", want: Credentials{User: "user", Pass: "pass"}},
		{name: "unpadded", header: "Basic dXNlcjpwYXNzMQ", want: Credentials{User: "user", Pass: "pass1"}},
		{name: "missing", header: "", wantErr: ErrMissingHeader},
		{name: "scheme only", header: "Basic", wantErr: ErrMalformedHeader},
		{name: "double space", header: "Basic  dXNlcjpwYXNz", wantErr: ErrMalformedHeader},
		{name: "other scheme", header: "Token abc", wantErr: ErrUnsupportedScheme},
		{name: "lowercase scheme", header: "basic dXNlcjpwYXNz", wantErr: ErrUnsupportedScheme},
		{name: "bad base64", header: "Basic !!!!", wantErr: ErrMalformedHeader},
		{name: "no colon", header: "Basic bm9jb2xvbg==", wantErr: ErrMalformedHeader},
		{name: "invalid utf8 replaced", header: "Basic //46cGFzcw==", want: Credentials{User: "\uFFFD", Pass: "pass"}},
		{name: "nfc normalized", header: "Basic am9zZcyBOnBhc3M=", want: Credentials{User: "josé", Pass: "pass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBasic(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify(t *testing.T) {
	assert.NoError(t, Credentials{User: "user", Pass: "pass"}.Verify(expected))

	// Same length, one differing byte.
	assert.ErrorIs(t, Credentials{User: "user", Pass: "pasx"}.Verify(expected), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{User: "xser", Pass: "pass"}.Verify(expected), ErrInvalidCredentials)

	// Different lengths.
	assert.ErrorIs(t, Credentials{User: "user", Pass: "passs"}.Verify(expected), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{User: "", Pass: ""}.Verify(expected), ErrInvalidCredentials)
}

func TestParseBasic_SchemeErrorDiffersFromCredentialError(t *testing.T) {
	_, schemeErr := ParseBasic("Token abc")

	creds, err := ParseBasic("Basic dXNlcjpwYXN4")
	require.NoError(t, err)
	credErr := creds.Verify(expected)

	assert.ErrorIs(t, schemeErr, ErrUnsupportedScheme)
	assert.ErrorIs(t, credErr, ErrInvalidCredentials)
	assert.NotErrorIs(t, schemeErr, ErrInvalidCredentials)
}

func TestCheckTransport(t *testing.T) {
	assert.NoError(t, CheckTransport("https", "catalog.example.com"))
	assert.NoError(t, CheckTransport("http", "localhost"))
	assert.NoError(t, CheckTransport("http", "localhost:8080"))
	assert.ErrorIs(t, CheckTransport("http", "catalog.example.com"), ErrInsecureTransport)
	assert.ErrorIs(t, CheckTransport("http", "127.0.0.1:8080"), ErrInsecureTransport)
}

func newAuthServer() *echo.Echo {
	e := echo.New()
	e.Use(BasicAuth(expected, func(c echo.Context) bool {
		return c.Path() == "/health"
	}, logger.Discard()))
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, GetUsername(c))
	})
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestBasicAuth_Middleware(t *testing.T) {
	tests := []struct {
		name          string
		host          string
		forwardedHTTP bool
		header        string
		path          string
		wantStatus    int
		wantChallenge bool
	}{
		{name: "valid https", host: "catalog.example.com", header: "Basic dXNlcjpwYXNz", path: "/whoami", wantStatus: http.StatusOK},
		{name: "valid localhost", host: "localhost:8080", header: "Basic dXNlcjpwYXNz", path: "/whoami", wantStatus: http.StatusOK},
		{name: "insecure", host: "catalog.example.com", forwardedHTTP: true, header: "Basic dXNlcjpwYXNz", path: "/whoami", wantStatus: http.StatusBadRequest},
		{name: "missing", host: "localhost", path: "/whoami", wantStatus: http.StatusUnauthorized, wantChallenge: true},
		{name: "wrong scheme", host: "localhost", header: "Token abc", path: "/whoami", wantStatus: http.StatusUnauthorized, wantChallenge: true},
		{name: "wrong password", host: "localhost", header: "Basic dXNlcjpwYXN4", path: "/whoami", wantStatus: http.StatusUnauthorized, wantChallenge: true},
		{name: "unknown path still authenticated", host: "localhost", path: "/nope", wantStatus: http.StatusUnauthorized, wantChallenge: true},
		{name: "health skipped", host: "localhost", path: "/health", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAuthServer()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Host = tt.host
			if tt.forwardedHTTP {
				req.Header.Set(echo.HeaderXForwardedProto, "http")
			} else if tt.host != "localhost" && tt.host != "localhost:8080" {
				req.Header.Set(echo.HeaderXForwardedProto, "https")
			}
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantChallenge {
				assert.Equal(t, WWWAuthenticate, rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
			if tt.wantStatus == http.StatusOK && tt.path == "/whoami" {
				assert.Equal(t, "user", rec.Body.String())
			}
		})
	}
}

func TestBasicAuth_UsernameKeysRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { raw.Close() })
	limiter := ratelimit.NewRateLimiter(raw, logger.Discard())

	e := echo.New()
	e.Use(BasicAuth(expected, nil, logger.Discard()))
	e.Use(commonmw.UserRateLimitMiddleware(limiter, GetUsername, 1, time.Minute))
	e.POST("/submit", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	submit := func() int {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Host = "localhost"
		req.Header.Set(echo.HeaderAuthorization, "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, submit())
	assert.Equal(t, http.StatusTooManyRequests, submit())
	assert.True(t, mr.Exists("rate_limit:submit:user"))
}
