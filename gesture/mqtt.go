package gesture

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kwv/strokemesh/trajectory"
)

// StrokeHandler is called for every stroke received, either as a complete
// payload on the stroke topic or assembled from the point topic. When the
// payload could not be decoded stroke is nil and err is set.
type StrokeHandler func(source string, stroke *Stroke, err error)

// MQTTClient manages the MQTT connection and stroke subscriptions
type MQTTClient struct {
	client        mqtt.Client
	config        *Config
	strokeHandler StrokeHandler
	tracker       *StrokeTracker
	isConnected   bool
	mu            sync.RWMutex
}

// pointMessage is one sample on the point topic. Control flags may ride
// along with a sample: the sample is recorded before the flag is applied.
type pointMessage struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	End    bool     `json:"end,omitempty"`
	Cancel bool     `json:"cancel,omitempty"`
	Undo   bool     `json:"undo,omitempty"`
}

// InitMQTT initializes an MQTT client with the provided configuration
// If neither MQTT_BROKER nor mqtt.broker is set, MQTT is disabled and this
// returns nil
func InitMQTT(config *Config, handler StrokeHandler) (*MQTTClient, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("[MQTT] disabled: MQTT_BROKER not set")
		return nil, nil
	}

	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}

	client := newMQTTClient(nil, config, handler)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config.MQTT.ClientID != "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = DefaultPrefix
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config.MQTT.Username != "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config.MQTT.Password != "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep subscriptions across reconnects
	// Samples on the point topic must be recorded in arrival order.
	opts.SetOrderMatters(true)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

func newMQTTClient(client mqtt.Client, config *Config, handler StrokeHandler) *MQTTClient {
	return &MQTTClient{
		client:        client,
		config:        config,
		strokeHandler: handler,
		tracker:       NewStrokeTracker(config.Capture),
	}
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected to broker")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect is called when the MQTT connection is established
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{c.config.MQTT.GetStrokeTopic(), c.handleStroke},
		{c.config.MQTT.GetPointTopic(), c.handlePoint},
	}
	for _, s := range subs {
		log.Printf("[MQTT] subscribing to %s", s.topic)
		token := client.Subscribe(s.topic, 0, s.handler)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("[MQTT] error subscribing to %s: %v", s.topic, token.Error())
		} else {
			log.Printf("[MQTT] subscribed to %s", s.topic)
		}
	}
}

// onConnectionLost is called when the MQTT connection is lost
// Auto-reconnect is enabled, so this is typically a transient event
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] reconnecting...")
}

// handleStroke decodes a complete stroke payload.
func (c *MQTTClient) handleStroke(client mqtt.Client, msg mqtt.Message) {
	source := sourceFromTopic(msg.Topic(), "stroke")
	payload := msg.Payload()
	log.Printf("[MQTT] received stroke from %s (topic: %s, size: %d bytes)", source, msg.Topic(), len(payload))

	stroke, err := DecodeStroke(payload)
	if err != nil {
		log.Printf("[MQTT] error decoding stroke from %s: %v", source, err)
	}
	if c.strokeHandler != nil {
		c.strokeHandler(source, stroke, err)
	}
}

// handlePoint records one streamed sample and delivers the stroke on end.
func (c *MQTTClient) handlePoint(client mqtt.Client, msg mqtt.Message) {
	source := sourceFromTopic(msg.Topic(), "point")

	var pm pointMessage
	if err := json.Unmarshal(msg.Payload(), &pm); err != nil {
		log.Printf("[MQTT] error decoding point from %s: %v", source, err)
		return
	}

	if pm.X != nil && pm.Y != nil {
		c.tracker.AddPoint(source, trajectory.Point{X: *pm.X, Y: *pm.Y})
	}

	switch {
	case pm.Cancel:
		c.tracker.Discard(source)
		log.Printf("[MQTT] stroke from %s cancelled", source)
	case pm.Undo:
		c.tracker.Undo(source)
	case pm.End:
		points := c.tracker.Finish(source)
		log.Printf("[MQTT] stroke from %s complete (%d points)", source, len(points))
		if c.strokeHandler != nil {
			c.strokeHandler(source, &Stroke{Points: points}, nil)
		}
	}
}

// sourceFromTopic returns the topic segment before the trailing kind
// segment, e.g. "strokemesh/pen1/stroke" -> "pen1". Topics that do not end
// in kind are returned whole.
func sourceFromTopic(topic, kind string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 && parts[len(parts)-1] == kind {
		return parts[len(parts)-2]
	}
	return topic
}

// Tracker returns the tracker assembling streamed strokes.
func (c *MQTTClient) Tracker() *StrokeTracker {
	return c.tracker
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] disconnecting from broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}
