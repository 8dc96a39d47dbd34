package gesture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the gesture configuration from a YAML file. A missing
// file yields an error wrapping fs.ErrNotExist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Validate checks the gesture list and every tunable.
func (c *Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return fmt.Errorf("match: %w", err)
	}
	if c.MQTT.QoS != nil && (*c.MQTT.QoS < 0 || *c.MQTT.QoS > 2) {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", *c.MQTT.QoS)
	}
	if c.SimplifyTolerance != nil && *c.SimplifyTolerance < 0 {
		return fmt.Errorf("simplifyTolerance must not be negative")
	}
	if c.Capture.MinSpacing != nil && *c.Capture.MinSpacing < 0 {
		return fmt.Errorf("capture.minSpacing must not be negative")
	}
	if c.Capture.MaxPoints != nil && *c.Capture.MaxPoints < 0 {
		return fmt.Errorf("capture.maxPoints must not be negative")
	}

	seen := make(map[string]bool, len(c.Gestures))
	for i, g := range c.Gestures {
		if g.Name == "" {
			return fmt.Errorf("gestures[%d].name is required", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("gestures[%d]: duplicate gesture name %q", i, g.Name)
		}
		seen[g.Name] = true

		if len(g.Templates) == 0 {
			return fmt.Errorf("gestures[%d].templates is empty for %s", i, g.Name)
		}
		for j, tmpl := range g.Templates {
			if len(tmpl) < 2 {
				return fmt.Errorf("gestures[%d].templates[%d] needs at least 2 points, has %d", i, j, len(tmpl))
			}
		}
		if err := g.Match.Validate(); err != nil {
			return fmt.Errorf("gestures[%d].match: %w", i, err)
		}
	}

	return nil
}
