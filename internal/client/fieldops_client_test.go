package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops-service/internal/config"
	"fieldops-service/internal/location"
)

func TestPushLocation(t *testing.T) {
	var got locationPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/technician/clock/entry-1/location", r.URL.Path)
		assert.Equal(t, "Bearer device-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewFieldClient(&config.AgentConfig{APIURL: srv.URL, Token: "device-token"})
	err := c.PushLocation(context.Background(), "entry-1", location.Fix{Lat: 43.2, Lng: 76.9, RecordedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 43.2, got.Lat)
	assert.Equal(t, 76.9, got.Lng)
}

func TestPushLocationSurfacesStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"already clocked out"}`, http.StatusConflict)
	}))
	defer srv.Close()

	c := NewFieldClient(&config.AgentConfig{APIURL: srv.URL, Token: "t"})
	err := c.PushLocation(context.Background(), "entry-1", location.Fix{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Equal(t, 1, calls)
}

func TestPushLocationRetriesNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewFieldClient(&config.AgentConfig{APIURL: url, Token: "t"})
	c.backoff = time.Millisecond

	err := c.PushLocation(context.Background(), "entry-1", location.Fix{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}
