package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echo struct {
	Auth  string `json:"auth"`
	Query string `json:"query"`
}

func TestGetDecodesJSONAndSetsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth":"` + r.Header.Get("Authorization") + `","query":"` + r.URL.Query().Get("q") + `"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Name: "test", BearerToken: "secret"}, zap.NewNop())
	var out echo
	err := c.Get(context.Background(), srv.URL, map[string]string{"q": "SOL"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", out.Auth)
	assert.Equal(t, "SOL", out.Query)
}

func TestNon2xxReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Name: "test"}, zap.NewNop())
	err := c.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}, nil, &echo{})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{
		Name:            "flaky",
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		require.Error(t, c.Get(context.Background(), srv.URL, nil, nil, &echo{}))
	}
	err := c.Get(context.Background(), srv.URL, nil, nil, &echo{})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, calls)
}

func TestNonJSONBodyIsMalformed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"html page", "text/html", `<html>maintenance</html>`},
		{"broken json", "application/json", `{"auth":`},
		{"empty body", "application/json", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(HTTPClientConfig{Name: "test"}, zap.NewNop())
			err := c.Get(context.Background(), srv.URL, nil, nil, &echo{})
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestJSONBodyWithoutContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"auth":"none"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{Name: "test"}, zap.NewNop())
	var out echo
	require.NoError(t, c.PostJSON(context.Background(), srv.URL, map[string]string{}, nil, &out))
	assert.Equal(t, "none", out.Auth)
}
