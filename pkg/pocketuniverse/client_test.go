package pocketuniverse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dex-sentinel/internal/worker/config"
	"dex-sentinel/pkg/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHasFakeVolume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/volume/verify", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req verifyReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.PairAddress == "WASH" {
			assert.Equal(t, 20000.0, req.Volume24h)
			assert.Equal(t, "solana", req.ChainID)
			_, _ = w.Write([]byte(`{"has_fake_volume": true}`))
			return
		}
		_, _ = w.Write([]byte(`{"has_fake_volume": false}`))
	}))
	defer srv.Close()

	c := NewClient(config.APIConfig{BaseURL: srv.URL + "/", APIKey: "key", Timeout: 5}, zap.NewNop())

	fake, err := c.HasFakeVolume(context.Background(), "WASH", 20000, "solana")
	require.NoError(t, err)
	assert.True(t, fake)

	fake, err = c.HasFakeVolume(context.Background(), "CLEAN", 1, "solana")
	require.NoError(t, err)
	assert.False(t, fake)
}

func TestHasFakeVolumeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: 5}, zap.NewNop())
	_, err := c.HasFakeVolume(context.Background(), "P", 1, "solana")
	assert.ErrorContains(t, err, "502")
}

func TestHasFakeVolumeHTMLBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := NewClient(config.APIConfig{BaseURL: srv.URL, Timeout: 5}, zap.NewNop())
	fake, err := c.HasFakeVolume(context.Background(), "P", 1, "solana")
	assert.ErrorIs(t, err, httpclient.ErrMalformedResponse)
	assert.False(t, fake)
}
