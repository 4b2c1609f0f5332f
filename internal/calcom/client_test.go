package calcom

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

func TestValidateKeyReturnsUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "cal_live_abc", r.URL.Query().Get("apiKey"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"username": "salon-aurora"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	username, err := client.ValidateKey(context.Background(), "cal_live_abc")
	require.NoError(t, err)
	assert.Equal(t, "salon-aurora", username)
}

func TestValidateKeyRejectedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.ValidateKey(context.Background(), "bad-key")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindRejected, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestValidateKeyConnectionKindOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	_, err := client.ValidateKey(context.Background(), "key")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindConnection, apiErr.Kind)
}

func TestCreateBookingPayload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 9001, "uid": "uid-9001"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	start := time.Date(2026, 9, 4, 15, 0, 0, 0, time.UTC)
	result, err := client.CreateBooking(context.Background(), "key", BookingRequest{
		EventTypeID:  42,
		Start:        start,
		End:          start.Add(45 * time.Minute),
		AttendeeName: "Laura Gomez",
		Email:        "laura@example.com",
		Phone:        "+573001112233",
	})
	require.NoError(t, err)
	assert.Equal(t, "9001", result.ID)
	assert.Equal(t, "uid-9001", result.UID)

	assert.Equal(t, float64(42), captured["eventTypeId"])
	assert.Equal(t, "America/Bogota", captured["timeZone"])
	assert.Equal(t, "es", captured["language"])
	responses, ok := captured["responses"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Laura Gomez", responses["name"])
	assert.Equal(t, "laura@example.com", responses["email"])
	assert.Equal(t, "+573001112233", responses["phone"])
}

func TestCancelBookingSendsReason(t *testing.T) {
	var path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, nil)
	require.NoError(t, client.CancelBooking(context.Background(), "key", "uid-9001", "Host cancelled"))
	assert.Equal(t, "/bookings/uid-9001/cancel", path)
	assert.Equal(t, "Host cancelled", body["reason"])
}

func TestAdapterValidateKey(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "no", status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"username": "x"}})
	}))
	defer srv.Close()

	adapter := NewAdapter(NewClient(srv.URL, time.Second, nil))

	ok, err := adapter.ValidateKey(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, ok)

	status = http.StatusForbidden
	ok, err = adapter.ValidateKey(context.Background(), "key")
	require.NoError(t, err)
	assert.False(t, ok)
}
