package nodered

import (
	"encoding/json"
	"testing"

	"nexsentri-go/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFlow(t *testing.T, raw string) []Node {
	t.Helper()
	var flow []Node
	require.NoError(t, json.Unmarshal([]byte(raw), &flow))
	return flow
}

func nodesByType(flow []Node, nodeType string) []Node {
	var matches []Node
	for _, node := range flow {
		if node["type"] == nodeType {
			matches = append(matches, node)
		}
	}
	return matches
}

func TestHTTPFlowTargetsCloudEndpoint(t *testing.T) {
	raw, err := HTTPFlow(
		models.WebhookConfig{URL: "http://localhost:1880/event", Enabled: true},
		models.CloudConfig{BaseURL: "https://cloud.example/", Username: "rig42", Password: "s3cret"},
	)
	require.NoError(t, err)

	flow := decodeFlow(t, raw)
	require.Len(t, nodesByType(flow, "tab"), 1)

	requests := nodesByType(flow, "http request")
	require.Len(t, requests, 1)
	// Trailing Slash der Basis-URL darf nicht doppelt auftauchen
	assert.Equal(t, "https://cloud.example/events", requests[0]["url"])
	assert.Equal(t, "POST", requests[0]["method"])

	functions := nodesByType(flow, "function")
	require.Len(t, functions, 1)
	assert.Contains(t, functions[0]["func"], "rig42:s3cret")
	assert.Contains(t, functions[0]["func"], "Authorization")

	ins := nodesByType(flow, "http in")
	require.Len(t, ins, 1)
	assert.Equal(t, "/nexsentri-event", ins[0]["url"])
}

func TestMQTTFlowBridgesTopics(t *testing.T) {
	raw, err := MQTTFlow(
		models.CloudConfig{MQTTURL: "mqtts://cloud.example", MQTTTopicPrefix: "rig42", Username: "u", Password: "p"},
		"localhost", "frigate/events",
	)
	require.NoError(t, err)

	flow := decodeFlow(t, raw)
	brokers := nodesByType(flow, "mqtt-broker")
	require.Len(t, brokers, 2)

	ins := nodesByType(flow, "mqtt in")
	require.Len(t, ins, 1)
	assert.Equal(t, "frigate/events", ins[0]["topic"])

	outs := nodesByType(flow, "mqtt out")
	require.Len(t, outs, 1)
	assert.Equal(t, "rig42/events", outs[0]["topic"])
}

func TestMQTTFlowDefaultsTopicPrefix(t *testing.T) {
	raw, err := MQTTFlow(models.CloudConfig{MQTTURL: "mqtt://cloud.example"}, "localhost", "frigate/events")
	require.NoError(t, err)

	flow := decodeFlow(t, raw)
	outs := nodesByType(flow, "mqtt out")
	require.Len(t, outs, 1)
	assert.Equal(t, "nexsentri/events", outs[0]["topic"])
}

func TestNodeIDsAreUnique(t *testing.T) {
	raw, err := HTTPFlow(models.WebhookConfig{}, models.CloudConfig{})
	require.NoError(t, err)

	flow := decodeFlow(t, raw)
	seen := make(map[string]bool)
	for _, node := range flow {
		id, ok := node["id"].(string)
		require.True(t, ok)
		assert.Len(t, id, 16)
		assert.False(t, seen[id], "duplicate node id %s", id)
		seen[id] = true
	}
}
