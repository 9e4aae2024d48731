package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dex-sentinel/internal/worker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)

		var req sendMessageReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "42", req.ChatID)

		w.Header().Set("Content-Type", "application/json")
		if req.Text == "blocked" {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":99,"date":1700000000}}`))
	}))
	defer srv.Close()

	c := NewClient(config.TelegramConfig{BaseURL: srv.URL, BotToken: "TOKEN", Timeout: 5}, zap.NewNop())

	msg, err := c.SendMessage(context.Background(), "42", "/buy PAIR 0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), msg.MessageID)

	_, err = c.SendMessage(context.Background(), "42", "blocked")
	assert.ErrorContains(t, err, "403")
}

func TestSendMessageNotConfigured(t *testing.T) {
	c := NewClient(config.TelegramConfig{BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	_, err := c.SendMessage(context.Background(), "42", "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
