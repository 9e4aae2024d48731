package lark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendText(t *testing.T) {
	var got webhookReq
	code := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(webhookResp{Code: code, Msg: "sign match fail"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	require.NoError(t, c.SendText(context.Background(), "Rug pattern: FOO (3 occurrences)"))
	assert.Equal(t, "text", got.MsgType)
	assert.Equal(t, "Rug pattern: FOO (3 occurrences)", got.Content.Text)

	code = 19021
	assert.ErrorContains(t, c.SendText(context.Background(), "x"), "19021")
}
