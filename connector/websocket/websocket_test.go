package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func echoOnceServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		_ = conn.Write(r.Context(), websocket.MessageBinary, payload)
	}))
}

func TestSourceEmitsOneFramePerLine(t *testing.T) {
	srv := echoOnceServer(t, []byte(`{"a":1}`+"\n"+`{"a":2}`))
	defer srv.Close()

	url := "ws" + srv.URL[len("http"):]
	src := NewSource(Options{URL: url})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := src.Run(ctx)
	require.NoError(t, err)

	it, err := s.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsValue())
	require.JSONEq(t, `{"a":1}`, string(it.Value().Payload))
	require.False(t, it.Value().ReceivedAt.IsZero())

	it, err = s.Consume(ctx)
	require.NoError(t, err)
	require.True(t, it.IsValue())
	require.JSONEq(t, `{"a":2}`, string(it.Value().Payload))

	cancel()
}
