package mqtt

import (
	"strings"
	"testing"
	"time"

	"nexsentri-go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(broker string) *Client {
	return NewClient(config.MQTTConfig{
		Enabled:        true,
		Broker:         broker,
		Port:           1883,
		ClientIDPrefix: "nexsentri",
		Topic:          "frigate/events",
	})
}

func TestStartReturnsPromptlyWhenBrokerUnreachable(t *testing.T) {
	client := newTestClient("tcp://127.0.0.1:1")
	defer client.Stop()

	done := make(chan error, 1)
	go func() {
		done <- client.Start()
	}()

	// Start darf den Aufrufer nie blockieren; ohne Broker bleibt die
	// Pipeline im Polling-Betrieb und der Client verbindet im Hintergrund.
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(connectTimeout + 5*time.Second):
		t.Fatal("Start() did not return with an unreachable broker")
	}

	assert.False(t, client.IsConnected())
}

func TestStartDisabledIsNoop(t *testing.T) {
	client := NewClient(config.MQTTConfig{Enabled: false})

	require.NoError(t, client.Start())
	assert.False(t, client.IsConnected())
	client.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	client := newTestClient("localhost")

	assert.NotPanics(t, func() {
		client.Stop()
	})
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		broker string
		want   string
	}{
		{"localhost", "tcp://localhost:1883"},
		{"tcp://broker:1884", "tcp://broker:1884"},
		{"ws://broker:9001/mqtt", "ws://broker:9001/mqtt"},
	}

	for _, tt := range tests {
		client := newTestClient(tt.broker)
		assert.Equal(t, tt.want, client.BrokerURL())
	}
}

func TestClientIDCarriesPrefix(t *testing.T) {
	client := newTestClient("localhost")

	first := client.clientID()
	second := client.clientID()

	assert.True(t, strings.HasPrefix(first, "nexsentri-"))
	assert.NotEqual(t, first, second)
}
