package gesture

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Publisher publishes recognition events to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	events        map[string]*RecognitionEvent
	mu            sync.RWMutex
}

// NewPublisher creates a new recognition publisher. MQTT_PUBLISH_PREFIX
// takes precedence over prefix; an empty result falls back to
// DefaultPrefix. If client is nil, publishing is disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if env := os.Getenv("MQTT_PUBLISH_PREFIX"); env != "" {
		prefix = env
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,     // events must not be lost
		retain:        false, // a gesture is an event, not a state
		events:        make(map[string]*RecognitionEvent),
	}
}

// NewPublisherFromConfig creates a publisher using the prefix, QoS and
// retain flag from cfg.
func NewPublisherFromConfig(client mqtt.Client, cfg MQTTConfig) *Publisher {
	p := NewPublisher(client, cfg.PublishPrefix)
	p.SetQoS(cfg.GetQoS())
	p.SetRetain(cfg.Retain)
	return p
}

// PublishRecognition publishes the recognition of a stroke from source to
// <prefix>/<source>/gesture and remembers it as the source's last event.
func (p *Publisher) PublishRecognition(source string, rec Recognition) (*RecognitionEvent, error) {
	if p.client == nil || !p.client.IsConnected() {
		return nil, fmt.Errorf("MQTT client not connected")
	}

	event := &RecognitionEvent{
		ID:         uuid.NewString(),
		Source:     source,
		Gesture:    rec.Gesture,
		Matched:    rec.Matched,
		Similarity: rec.Similarity,
		Timestamp:  time.Now().Unix(),
	}

	topic := fmt.Sprintf("%s/%s/gesture", p.publishPrefix, source)
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshaling recognition: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	p.mu.Lock()
	p.events[source] = event
	p.mu.Unlock()

	log.Printf("[MQTT] published %s for %s: gesture=%q similarity=%.3f",
		event.ID, source, event.Gesture, event.Similarity)
	return event, nil
}

// GetLastEvent returns the last event published for a source
func (p *Publisher) GetLastEvent(source string) (*RecognitionEvent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.events[source]
	if !ok {
		return nil, false
	}
	eventCopy := *e
	return &eventCopy, true
}

// GetAllEvents returns the last event for every source
func (p *Publisher) GetAllEvents() map[string]*RecognitionEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	events := make(map[string]*RecognitionEvent, len(p.events))
	for id, e := range p.events {
		eventCopy := *e
		events[id] = &eventCopy
	}
	return events
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
