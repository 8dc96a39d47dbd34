// Package gesture turns the trajectory matcher into a recognition service:
// a configured library of named gesture templates, stroke payload decoding,
// GeoJSON export and MQTT transport.
package gesture

import "github.com/kwv/strokemesh/trajectory"

// DefaultPrefix is the MQTT topic prefix used when neither the config nor
// MQTT_PUBLISH_PREFIX sets one.
const DefaultPrefix = "strokemesh"

// Stroke is one decoded stroke payload.
type Stroke struct {
	ID     string             `json:"id,omitempty"`
	Points []trajectory.Point `json:"points"`
}

// Gesture is a named set of template strokes. A stroke is recognized as the
// gesture when it matches any one of the templates.
type Gesture struct {
	Name        string               `yaml:"name" json:"name"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty"`
	Templates   [][]trajectory.Point `yaml:"templates" json:"templates"`

	// Match tightens or loosens the library options for this gesture only.
	Match trajectory.Overrides `yaml:"match,omitempty" json:"match,omitempty"`
}

// Score is one gesture's best template score for a stroke.
type Score struct {
	Gesture    string  `json:"gesture"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
}

// Recognition is the outcome of matching a stroke against a Library.
// Gesture is empty when no gesture matched; Similarity then still carries
// the best score seen.
type Recognition struct {
	Gesture string `json:"gesture"`
	trajectory.MatchResult
	Scores []Score `json:"scores"`
}

// RecognitionEvent is the message published for every recognized stroke.
type RecognitionEvent struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Gesture    string  `json:"gesture"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`
	Timestamp  int64   `json:"timestamp"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	StrokeTopic   string `yaml:"strokeTopic,omitempty" json:"strokeTopic,omitempty"` // default <prefix>/+/stroke
	PointTopic    string `yaml:"pointTopic,omitempty" json:"pointTopic,omitempty"`   // default <prefix>/+/point
	QoS           *int   `yaml:"qos,omitempty" json:"qos,omitempty"`                 // recognition QoS, default 1
	Retain        bool   `yaml:"retain,omitempty" json:"retain,omitempty"`
}

// CaptureConfig tunes the per-source sample buffers fed by point streams.
type CaptureConfig struct {
	MinSpacing *float64 `yaml:"minSpacing,omitempty" json:"minSpacing,omitempty"`
	MaxPoints  *int     `yaml:"maxPoints,omitempty" json:"maxPoints,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	MQTT              MQTTConfig           `yaml:"mqtt" json:"mqtt"`
	Match             trajectory.Overrides `yaml:"match,omitempty" json:"match,omitempty"`
	SimplifyTolerance *float64             `yaml:"simplifyTolerance,omitempty" json:"simplifyTolerance,omitempty"` // 0 disables pre-simplification
	Capture           CaptureConfig        `yaml:"capture,omitempty" json:"capture,omitempty"`
	Gestures          []Gesture            `yaml:"gestures" json:"gestures"`
}

// GetPublishPrefix returns the configured prefix or DefaultPrefix.
func (m MQTTConfig) GetPublishPrefix() string {
	if m.PublishPrefix != "" {
		return m.PublishPrefix
	}
	return DefaultPrefix
}

// GetStrokeTopic returns the topic filter complete strokes arrive on.
func (m MQTTConfig) GetStrokeTopic() string {
	if m.StrokeTopic != "" {
		return m.StrokeTopic
	}
	return m.GetPublishPrefix() + "/+/stroke"
}

// GetPointTopic returns the topic filter streamed samples arrive on.
func (m MQTTConfig) GetPointTopic() string {
	if m.PointTopic != "" {
		return m.PointTopic
	}
	return m.GetPublishPrefix() + "/+/point"
}

// GetQoS returns the recognition publish QoS, defaulting to 1.
func (m MQTTConfig) GetQoS() byte {
	if m.QoS != nil {
		return byte(*m.QoS)
	}
	return 1
}

// GetMinSpacing returns the capture spacing or trajectory.DefaultMinSpacing.
func (c CaptureConfig) GetMinSpacing() float64 {
	if c.MinSpacing != nil {
		return *c.MinSpacing
	}
	return trajectory.DefaultMinSpacing
}

// GetMaxPoints returns the capture cap or trajectory.DefaultMaxPoints.
func (c CaptureConfig) GetMaxPoints() int {
	if c.MaxPoints != nil {
		return *c.MaxPoints
	}
	return trajectory.DefaultMaxPoints
}

// MatchOptions returns the library-wide options with overrides applied.
func (c *Config) MatchOptions() trajectory.MatchOptions {
	return c.Match.Apply(trajectory.DefaultMatchOptions())
}

// GetSimplifyTolerance returns the pre-simplification tolerance, defaulting
// to trajectory.DefaultSimplifyTolerance.
func (c *Config) GetSimplifyTolerance() float64 {
	if c.SimplifyTolerance != nil {
		return *c.SimplifyTolerance
	}
	return trajectory.DefaultSimplifyTolerance
}

// GetGesture returns the gesture with the given name
func (c *Config) GetGesture(name string) *Gesture {
	for i := range c.Gestures {
		if c.Gestures[i].Name == name {
			return &c.Gestures[i]
		}
	}
	return nil
}

// AddTemplate appends a template stroke to the named gesture, creating the
// gesture if needed. It returns the gesture's template count.
func (c *Config) AddTemplate(name string, stroke []trajectory.Point) int {
	if g := c.GetGesture(name); g != nil {
		g.Templates = append(g.Templates, stroke)
		return len(g.Templates)
	}
	c.Gestures = append(c.Gestures, Gesture{
		Name:      name,
		Templates: [][]trajectory.Point{stroke},
	})
	return 1
}

// RemoveGesture deletes the named gesture and reports whether it existed.
func (c *Config) RemoveGesture(name string) bool {
	for i := range c.Gestures {
		if c.Gestures[i].Name == name {
			c.Gestures = append(c.Gestures[:i], c.Gestures[i+1:]...)
			return true
		}
	}
	return false
}
