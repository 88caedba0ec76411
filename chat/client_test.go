package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_Enqueue(t *testing.T) {
	req := require.New(t)
	client := newTestClient("a")

	req.True(client.Enqueue([]byte("first")))
	req.Equal([]byte("first"), drain(client))
}

func TestClient_EnqueueAfterClose(t *testing.T) {
	req := require.New(t)
	client := newTestClient("gone")
	client.Close()

	// Closed wins over a free buffer slot every time, not just sometimes.
	for i := 0; i < 1000; i++ {
		req.False(client.Enqueue([]byte("late")))
	}
	req.Nil(drain(client))
}

func TestClient_EnqueueFullBuffer(t *testing.T) {
	req := require.New(t)
	client := newTestClient("slow")

	for i := 0; i < cap(client.send); i++ {
		req.True(client.Enqueue([]byte("fill")))
	}
	req.False(client.Enqueue([]byte("overflow")))
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := newTestClient("a")
	client.Close()
	client.Close()

	require.False(t, client.Enqueue([]byte("late")))
}
