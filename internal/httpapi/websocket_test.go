package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyBroadcastsToConnectedClients(t *testing.T) {
	hub := newHub()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server a moment to register the client before notifying
	time.Sleep(20 * time.Millisecond)
	hub.Notify("40")

	var event cycleEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))

	require.Equal(t, "cycle_complete", event.Event)
	require.Equal(t, "40", event.Key)
}

func TestHub_NotifyWithNoClientsDoesNotBlock(t *testing.T) {
	hub := newHub()
	done := make(chan struct{})
	go func() {
		hub.Notify("40")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no connected clients")
	}
}
