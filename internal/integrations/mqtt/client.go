package mqtt

import (
	"fmt"
	"strings"
	"time"

	"nexsentri-go/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// connectTimeout begrenzt das synchrone Warten auf den ersten Verbindungsaufbau.
// Danach verbindet der Client im Hintergrund weiter.
const connectTimeout = 5 * time.Second

// Client ist der MQTT-Client für den Empfang von Detection-Ereignissen
type Client struct {
	config   config.MQTTConfig
	client   mqtt.Client
	handlers []MessageHandler
}

// MessageHandler ist ein Interface für Handler, die MQTT-Nachrichten verarbeiten
type MessageHandler interface {
	HandleMessage(topic string, payload []byte)
}

// NewClient erstellt einen neuen MQTT-Client
func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{
		config:   cfg,
		handlers: make([]MessageHandler, 0),
	}
}

// RegisterHandler registriert einen neuen MessageHandler
func (c *Client) RegisterHandler(handler MessageHandler) {
	c.handlers = append(c.handlers, handler)
	log.Debug("Registered new MQTT message handler")
}

// BrokerURL baut die Broker-Adresse. Enthält die Konfiguration bereits ein
// Schema (tcp://, ws://, wss://), wird sie unverändert übernommen.
func (c *Client) BrokerURL() string {
	if strings.Contains(c.config.Broker, "://") {
		return c.config.Broker
	}
	return fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port)
}

// ClientID liefert eine pro Prozess eindeutige Client-Identität
func (c *Client) clientID() string {
	return fmt.Sprintf("%s-%s", c.config.ClientIDPrefix, uuid.NewString()[:8])
}

// Start verbindet den Client mit dem Broker und abonniert das Event-Topic
func (c *Client) Start() error {
	if !c.config.Enabled {
		log.Info("MQTT client is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := c.BrokerURL()
	opts.AddBroker(brokerURL)

	opts.SetClientID(c.clientID())

	// Optionale Authentifizierung
	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}

	// Connection-Callbacks konfigurieren
	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)

	// Automatische Wiederverbindung mit fester Verzögerung
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(5 * time.Second)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	c.client = mqtt.NewClient(opts)

	// Nur begrenzt synchron warten: mit ConnectRetry wird das Token erst
	// bei erfolgreicher Verbindung abgeschlossen, und der Aufrufer darf
	// nicht an einem nicht erreichbaren Broker hängen bleiben.
	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warnf("MQTT broker at %s not reachable yet, retrying in background", brokerURL)
		return nil
	}
	if token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker: %v", token.Error())
		return token.Error()
	}

	log.Info("MQTT client connected successfully")
	return nil
}

// Stop beendet den MQTT-Client. Disconnect beendet auch noch laufende
// Verbindungsversuche im Hintergrund.
func (c *Client) Stop() {
	if c.client != nil {
		log.Info("Disconnecting MQTT client...")
		c.client.Disconnect(250)
		log.Info("MQTT client disconnected")
	}
}

// IsConnected prüft, ob der Client verbunden ist
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// onConnectHandler wird aufgerufen, wenn die Verbindung hergestellt wurde
func (c *Client) onConnectHandler(client mqtt.Client) {
	log.Infof("Connected to MQTT broker at %s", c.BrokerURL())

	log.Infof("Subscribing to MQTT topic: %s", c.config.Topic)
	if token := client.Subscribe(c.config.Topic, 1, c.messageHandler); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to subscribe to topic %s: %v", c.config.Topic, token.Error())
	} else {
		log.Infof("Successfully subscribed to topic: %s", c.config.Topic)
	}
}

// connectionLostHandler wird aufgerufen, wenn die Verbindung verloren geht.
// Der Client verbindet sich selbständig neu.
func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v", err)
}

// messageHandler verarbeitet eingehende MQTT-Nachrichten.
// Handler werden synchron aufgerufen, damit die Ankunftsreihenfolge erhalten bleibt.
func (c *Client) messageHandler(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	payload := msg.Payload()

	log.Debugf("Received MQTT message on topic: %s", topic)

	for _, handler := range c.handlers {
		handler.HandleMessage(topic, payload)
	}
}
