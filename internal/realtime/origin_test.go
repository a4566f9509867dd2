package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestFrom(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "http://api.example.com/realtime/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	policy := NewOriginPolicy([]string{" https://Ops.Example.com/ ", "", "https://ops.example.com"})
	assert.False(t, policy.AllowAll())
	assert.Equal(t, []string{"https://ops.example.com"}, policy.Origins())

	assert.True(t, policy.Allow(requestFrom("")))
	assert.True(t, policy.Allow(requestFrom("https://ops.example.com")))
	assert.True(t, policy.Allow(requestFrom("http://api.example.com")))
	assert.False(t, policy.Allow(requestFrom("https://evil.example.net")))
	assert.False(t, policy.Allow(requestFrom("http://ops.example.com")))
	assert.False(t, policy.Allow(requestFrom("::not a url")))

	var zero OriginPolicy
	assert.False(t, zero.Allow(requestFrom("https://ops.example.com")))

	all := NewOriginPolicy([]string{"*", "https://ops.example.com"})
	assert.True(t, all.AllowAll())
	assert.Empty(t, all.Origins())
	assert.True(t, all.Allow(requestFrom("https://anything.example.org")))
}

func TestServeWSChecksOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop(), WithOriginPolicy(NewOriginPolicy([]string{"https://ops.example.com"})))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := hub.NewClient(uuid.New())
		defer hub.CloseClient(client)
		hub.ServeWS(w, r, client)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://evil.example.net"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"https://ops.example.com"}})
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
