package nodered

import (
	"encoding/json"
	"fmt"
	"strings"

	"nexsentri-go/internal/core/models"

	"github.com/google/uuid"
)

// Node ist ein einzelner Knoten eines Node-RED-Flows. Die Dokumente sind
// opake Konfigurations-Payloads für Node-RED, nicht für dieses System.
type Node map[string]interface{}

// nodeID erzeugt eine Node-RED-übliche kurze Knoten-ID
func nodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// HTTPFlow baut den HTTP-Forwarding-Flow: eingehende Events werden per
// HTTP-Request mit Basic-Auth an den Cloud-Endpunkt weitergereicht.
func HTTPFlow(webhook models.WebhookConfig, cloud models.CloudConfig) (string, error) {
	tabID := nodeID()
	inID := nodeID()
	authID := nodeID()
	requestID := nodeID()
	responseID := nodeID()

	authFunc := fmt.Sprintf(
		"msg.headers = msg.headers || {};\n"+
			"msg.headers['Authorization'] = 'Basic ' + Buffer.from('%s:%s').toString('base64');\n"+
			"return msg;",
		cloud.Username, cloud.Password)

	flow := []Node{
		{
			"id":    tabID,
			"type":  "tab",
			"label": "NexSentri HTTP Forwarding",
		},
		{
			"id":     inID,
			"type":   "http in",
			"z":      tabID,
			"name":   "Event Webhook",
			"url":    "/nexsentri-event",
			"method": "post",
			"wires":  [][]string{{authID}},
		},
		{
			"id":    authID,
			"type":  "function",
			"z":     tabID,
			"name":  "Cloud Auth",
			"func":  authFunc,
			"wires": [][]string{{requestID}},
		},
		{
			"id":     requestID,
			"type":   "http request",
			"z":      tabID,
			"name":   "Forward to Cloud",
			"method": "POST",
			"url":    strings.TrimSuffix(cloud.BaseURL, "/") + "/events",
			"ret":    "obj",
			"wires":  [][]string{{responseID}},
		},
		{
			"id":         responseID,
			"type":       "http response",
			"z":          tabID,
			"name":       "Ack",
			"statusCode": "200",
			"wires":      [][]string{},
		},
	}

	return marshalFlow(flow)
}

// MQTTFlow baut den MQTT-Bridge-Flow: das lokale Event-Topic wird unter dem
// konfigurierten Prefix an den Cloud-Broker gespiegelt.
func MQTTFlow(cloud models.CloudConfig, localBroker, localTopic string) (string, error) {
	tabID := nodeID()
	localBrokerID := nodeID()
	cloudBrokerID := nodeID()
	inID := nodeID()
	outID := nodeID()

	prefix := cloud.MQTTTopicPrefix
	if prefix == "" {
		prefix = "nexsentri"
	}

	flow := []Node{
		{
			"id":    tabID,
			"type":  "tab",
			"label": "NexSentri MQTT Bridge",
		},
		{
			"id":     localBrokerID,
			"type":   "mqtt-broker",
			"name":   "Local Broker",
			"broker": localBroker,
			"port":   "1883",
		},
		{
			"id":          cloudBrokerID,
			"type":        "mqtt-broker",
			"name":        "Cloud Broker",
			"broker":      cloud.MQTTURL,
			"credentials": Node{"user": cloud.Username, "password": cloud.Password},
		},
		{
			"id":     inID,
			"type":   "mqtt in",
			"z":      tabID,
			"name":   "Detection Events",
			"topic":  localTopic,
			"qos":    "1",
			"broker": localBrokerID,
			"wires":  [][]string{{outID}},
		},
		{
			"id":     outID,
			"type":   "mqtt out",
			"z":      tabID,
			"name":   "Cloud Mirror",
			"topic":  prefix + "/events",
			"qos":    "1",
			"retain": "false",
			"broker": cloudBrokerID,
			"wires":  [][]string{},
		},
	}

	return marshalFlow(flow)
}

func marshalFlow(flow []Node) (string, error) {
	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal flow document: %w", err)
	}
	return string(data), nil
}
