package gesture

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/kwv/strokemesh/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recognized(name string, similarity float64) Recognition {
	return Recognition{
		Gesture:     name,
		MatchResult: trajectory.MatchResult{Matched: name != "", Similarity: similarity},
	}
}

func TestNewPublisher(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")

	p := NewPublisher(nil, "")
	assert.Equal(t, DefaultPrefix, p.publishPrefix)
	assert.Equal(t, byte(1), p.qos)
	assert.False(t, p.retain)
	assert.NotNil(t, p.events)

	assert.Equal(t, "pens", NewPublisher(nil, "pens").publishPrefix)
}

func TestNewPublisher_EnvOverride(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "from-env")
	assert.Equal(t, "from-env", NewPublisher(nil, "pens").publishPrefix)
}

func TestPublisher_PublishWithNilClient(t *testing.T) {
	_, err := NewPublisher(nil, "").PublishRecognition("pen1", recognized("L", 0.9))
	assert.Error(t, err)
}

func TestPublisher_PublishRecognition(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock, "pens")

	event, err := p.PublishRecognition("pen1", recognized("L", 0.91))
	require.NoError(t, err)

	msgs := mock.GetPublishedMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "pens/pen1/gesture", msgs[0].Topic)
	assert.Equal(t, byte(1), msgs[0].QoS)
	assert.False(t, msgs[0].Retain)

	var decoded RecognitionEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &decoded))
	assert.Equal(t, *event, decoded)
	assert.Equal(t, "pen1", decoded.Source)
	assert.Equal(t, "L", decoded.Gesture)
	assert.True(t, decoded.Matched)
	assert.Equal(t, 0.91, decoded.Similarity)
	assert.NotZero(t, decoded.Timestamp)
	_, err = uuid.Parse(decoded.ID)
	assert.NoError(t, err, "event id should be a UUID")
}

func TestPublisher_UnmatchedStrokeIsPublished(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock, "pens")

	_, err := p.PublishRecognition("pen1", recognized("", 0.2))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(mock.GetPublishedMessages()[0].Payload, &decoded))
	assert.Equal(t, "", decoded["gesture"])
	assert.Equal(t, false, decoded["matched"])
}

func TestPublisher_PublishError(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	mock.SetPublishError(errors.New("broker full"))

	_, err := NewPublisher(mock, "").PublishRecognition("pen1", recognized("L", 1))
	assert.Error(t, err)
}

func TestPublisher_EventIDsAreUnique(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock, "")

	a, err := p.PublishRecognition("pen1", recognized("L", 1))
	require.NoError(t, err)
	b, err := p.PublishRecognition("pen1", recognized("L", 1))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPublisher_LastEvents(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock, "")

	_, ok := p.GetLastEvent("pen1")
	assert.False(t, ok)

	p.PublishRecognition("pen1", recognized("L", 0.8))
	p.PublishRecognition("pen1", recognized("swipe", 0.95))
	p.PublishRecognition("pen2", recognized("", 0.1))

	last, ok := p.GetLastEvent("pen1")
	require.True(t, ok)
	assert.Equal(t, "swipe", last.Gesture)

	// Returned events are copies.
	last.Gesture = "mutated"
	again, _ := p.GetLastEvent("pen1")
	assert.Equal(t, "swipe", again.Gesture)

	all := p.GetAllEvents()
	assert.Len(t, all, 2)
}

func TestPublisher_SetQoSAndRetain(t *testing.T) {
	p := NewPublisher(nil, "")
	p.SetQoS(2)
	assert.Equal(t, byte(2), p.qos)
	p.SetQoS(3)
	assert.Equal(t, byte(2), p.qos, "invalid QoS ignored")

	p.SetRetain(true)
	assert.True(t, p.retain)
}

func TestNewPublisherFromConfig(t *testing.T) {
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	mock := NewMockClient()
	mock.SetConnected(true)

	qos := 0
	p := NewPublisherFromConfig(mock, MQTTConfig{PublishPrefix: "pens", QoS: &qos, Retain: true})
	_, err := p.PublishRecognition("pen1", recognized("L", 0.9))
	require.NoError(t, err)

	msgs := mock.GetPublishedMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "pens/pen1/gesture", msgs[0].Topic)
	assert.Equal(t, byte(0), msgs[0].QoS)
	assert.True(t, msgs[0].Retain)

	defaults := NewPublisherFromConfig(nil, MQTTConfig{})
	assert.Equal(t, byte(1), defaults.qos)
	assert.False(t, defaults.retain)
	assert.Equal(t, DefaultPrefix, defaults.publishPrefix)
}

func TestPublisher_ConcurrentAccess(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	p := NewPublisher(mock, "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.PublishRecognition("pen", recognized("L", 1))
			p.GetAllEvents()
		}()
	}
	wg.Wait()
	assert.Len(t, mock.GetPublishedMessages(), 10)
}
