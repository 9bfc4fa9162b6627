package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*TelegramClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTelegramClient("test-token").WithAPIBase(srv.URL), srv
}

func TestSend(t *testing.T) {
	t.Parallel()

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 42, body["chat_id"])
		assert.Equal(t, "hello", body["text"])

		w.Write([]byte(`{"ok":true,"result":{"message_id":7,"chat":{"id":42}}}`))
	})

	ref, err := client.Send(context.Background(), 42, "hello")
	require.NoError(t, err)
	assert.Equal(t, MessageRef{ChatID: 42, MessageID: 7}, ref)
}

func TestSend_APIError(t *testing.T) {
	t.Parallel()

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	})

	_, err := client.Send(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendPhoto(t *testing.T) {
	t.Parallel()

	photo := []byte{0x89, 'P', 'N', 'G'}

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "42", r.FormValue("chat_id"))
		assert.Equal(t, "scan me", r.FormValue("caption"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "qr.png", header.Filename)

		w.Write([]byte(`{"ok":true,"result":{"message_id":8,"chat":{"id":42}}}`))
	})

	ref, err := client.SendPhoto(context.Background(), 42, "scan me", photo)
	require.NoError(t, err)
	assert.Equal(t, MessageRef{ChatID: 42, MessageID: 8}, ref)
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/deleteMessage", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 42, body["chat_id"])
		assert.EqualValues(t, 7, body["message_id"])

		w.Write([]byte(`{"ok":true,"result":true}`))
	})

	err := client.DeleteMessage(context.Background(), MessageRef{ChatID: 42, MessageID: 7})
	require.NoError(t, err)
}

func TestGetUpdates(t *testing.T) {
	t.Parallel()

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5, body["offset"])
		assert.EqualValues(t, 30, body["timeout"])

		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":5,"message":{"message_id":1,"chat":{"id":42},"from":{"id":42,"is_bot":false},"text":"hi"}},
			{"update_id":6,"message":{"message_id":2,"chat":{"id":43},"from":{"id":99,"is_bot":true},"text":"echo"}},
			{"update_id":7}
		]}`))
	})

	updates, err := client.GetUpdates(context.Background(), 5, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	msg, ok := updates[0].Inbound()
	require.True(t, ok)
	assert.Equal(t, Message{ChatID: 42, MessageID: 1, Text: "hi"}, msg)

	// bot echo filtered
	_, ok = updates[1].Inbound()
	assert.False(t, ok)

	// update without message filtered
	_, ok = updates[2].Inbound()
	assert.False(t, ok)
}

func TestCall_MalformedResponse(t *testing.T) {
	t.Parallel()

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	})

	_, err := client.Send(context.Background(), 42, "hello")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "sendMessage"))
}
