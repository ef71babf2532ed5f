package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDefaults(t *testing.T) {
	m := Message{Token: "abc"}.WithDefaults()
	assert.Equal(t, "Notification", m.Title)
	assert.Equal(t, "You have a new message.", m.Body)
	assert.NotNil(t, m.Data)

	m = Message{Token: "abc", Title: "Fill", Body: "EUR/USD closed"}.WithDefaults()
	assert.Equal(t, "Fill", m.Title)
	assert.Equal(t, "EUR/USD closed", m.Body)
}

func TestWebhookNotifier_Send(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(server.URL, time.Second)
	require.NoError(t, err)

	id, err := n.Send(context.Background(), Message{Token: "device-1", Data: map[string]string{"trade_id": "7"}})
	require.NoError(t, err)
	assert.Len(t, id, 26)

	assert.Equal(t, id, got["id"])
	assert.Equal(t, "device-1", got["token"])
	assert.Equal(t, map[string]any{"title": "Notification", "body": "You have a new message."}, got["notification"])
	assert.Equal(t, map[string]any{"trade_id": "7"}, got["data"])

	webpush := got["webpush"].(map[string]any)["notification"].(map[string]any)
	assert.Equal(t, "/icon-192x192.png", webpush["icon"])
	assert.Equal(t, "/icon-96x96.png", webpush["badge"])
}

func TestWebhookNotifier_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n, err := NewWebhookNotifier(server.URL, time.Second)
	require.NoError(t, err)

	_, err = n.Send(context.Background(), Message{Token: "t"})
	assert.ErrorContains(t, err, "502")

	_, err = n.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewWebhookNotifier(" ", time.Second)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	n, err := New("", time.Second)
	require.NoError(t, err)
	assert.IsType(t, LogNotifier{}, n)

	id, err := n.Send(context.Background(), Message{Token: "t"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = n.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrMissingToken)

	n, err = New("http://push.example.test/send", time.Second)
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "abc", shortToken("abc"))
	assert.Equal(t, "0123456789abcdefghij...", shortToken("0123456789abcdefghijKLMNOP"))
}
