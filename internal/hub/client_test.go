package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phostann/ybook/internal/config"
)

func TestSendEventQueuesMarshaledFrame(t *testing.T) {
	c := NewClient("conn-1", 7, nil, config.WebSocketConfig{})

	require.NoError(t, c.SendEvent(map[string]string{"type": "PONG"}))

	select {
	case raw := <-c.Send:
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(raw, &decoded))
		require.Equal(t, "PONG", decoded["type"])
	default:
		t.Fatal("expected a queued frame")
	}
}

func TestSendEventDropsWhenBufferFull(t *testing.T) {
	c := NewClient("conn-1", 7, nil, config.WebSocketConfig{})

	for i := 0; i < cap(c.Send); i++ {
		require.NoError(t, c.SendEvent(i))
	}

	// The buffer is full; the next frame is dropped, not blocked on.
	require.NoError(t, c.SendEvent("overflow"))
	require.Len(t, c.Send, cap(c.Send))
}

func TestSendEventRejectsUnmarshalableValue(t *testing.T) {
	c := NewClient("conn-1", 7, nil, config.WebSocketConfig{})

	require.Error(t, c.SendEvent(make(chan int)))
	require.Empty(t, c.Send)
}
