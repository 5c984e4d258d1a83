package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_RegisterAndUnregisterTracksClientCount(t *testing.T) {
	hub := NewHub()
	c := newClient("c1", hub, nil)

	hub.register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	c := newClient("c1", hub, nil)
	hub.register(c)
	hub.unregister(c)

	_, open := <-c.send
	assert.False(t, open)
}

func TestHub_UnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	c := newClient("ghost", hub, nil)
	assert.NotPanics(t, func() { hub.unregister(c) })
}
