package web

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := newHub()
	a, unsubA := h.subscribe(4)
	b, unsubB := h.subscribe(4)
	defer unsubB()
	require.Equal(t, 2, h.subscribers())

	h.publish(frame{event: "data", data: []byte(`{}`)})
	require.Equal(t, "data", (<-a).event)
	require.Equal(t, "data", (<-b).event)

	unsubA()
	unsubA()
	_, ok := <-a
	require.False(t, ok, "unsubscribed channel should be closed")
	require.Equal(t, 1, h.subscribers())
}

func TestHub_SlowSubscriberDropsFrames(t *testing.T) {
	h := newHub()
	ch, unsub := h.subscribe(1)
	defer unsub()

	h.publish(frame{event: "one"})
	h.publish(frame{event: "two"})

	require.Equal(t, "one", (<-ch).event)
	require.EqualValues(t, 1, h.dropped.Load())
}

func TestHub_Close(t *testing.T) {
	h := newHub()
	ch, unsub := h.subscribe(1)

	h.close()
	_, ok := <-ch
	require.False(t, ok)
	unsub() // must not panic on a closed hub

	late, _ := h.subscribe(1)
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")
	h.publish(frame{event: "ignored"})
}
