package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTextPostsToTenantNumber(t *testing.T) {
	var captured map[string]any
	var authHeader, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{"id": "wamid.out1"}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	id, err := client.SendText(context.Background(), "token-xyz", "pn-123", "573001112233", "Tu cita fue confirmada")
	require.NoError(t, err)

	assert.Equal(t, "wamid.out1", id)
	assert.Equal(t, "Bearer token-xyz", authHeader)
	assert.Equal(t, "/pn-123/messages", path)
	assert.Equal(t, "whatsapp", captured["messaging_product"])
	assert.Equal(t, "573001112233", captured["to"])
	text, ok := captured["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tu cita fue confirmada", text["body"])
}

func TestSendTextFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.SendText(context.Background(), "bad", "pn-123", "573001112233", "hola")
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestValidateToken(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "no", status)
			return
		}
		_, _ = w.Write([]byte(`{"id":"10001"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)

	ok, err := client.ValidateToken(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, ok)

	status = http.StatusUnauthorized
	ok, err = client.ValidateToken(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	status = http.StatusInternalServerError
	_, err = client.ValidateToken(context.Background(), "any")
	assert.Error(t, err)
}
