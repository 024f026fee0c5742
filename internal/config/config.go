// Package config loads the bridge's runtime settings from YAML with
// environment variable overrides.
package config

import (
	"ajax-cloud-bridge/internal/domain/view"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const DefaultBackendURL = "https://ajax-backend.example.com"

type Config struct {
	Backend         BackendConfig     `yaml:"backend"`
	Coordinator     CoordinatorConfig `yaml:"coordinator"`
	CredentialsPath string            `yaml:"credentials_path"`
	HTTP            HTTPConfig        `yaml:"http"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Logging         LoggingConfig     `yaml:"logging"`
	Sensors         SensorsConfig     `yaml:"sensors"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CoordinatorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SensorsConfig maps a reading (temperature, battery, humidity) to a
// formula over x applied before the value is exposed.
type SensorsConfig struct {
	Formulas map[string]string `yaml:"formulas"`
}

// Load reads path onto the defaults. A missing file is not an error; the
// defaults and environment overrides are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Timeout: 30 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			Interval: 30 * time.Second,
		},
		CredentialsPath: "/app/credentials.json",
		HTTP: HTTPConfig{
			Listen: ":8080",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "ajax-cloud-bridge",
			TopicPrefix: "ajax",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides follows the pattern AJAX_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AJAX_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("AJAX_CREDENTIALS_PATH"); v != "" {
		cfg.CredentialsPath = v
	}
	if v := os.Getenv("AJAX_HTTP_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := os.Getenv("AJAX_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
		cfg.MQTT.Enabled = true
	}
	if v := os.Getenv("AJAX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("AJAX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("AJAX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "backend.url must be an absolute URL")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if c.Coordinator.Interval <= 0 {
		errs = append(errs, "coordinator.interval must be positive")
	}
	if c.CredentialsPath == "" {
		errs = append(errs, "credentials_path is required")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if strings.Trim(c.MQTT.TopicPrefix, "/") == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		errs = append(errs, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, "logging.format must be json or console")
	}
	if _, err := c.Formulas(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Formulas compiles sensors.formulas.
func (c *Config) Formulas() (map[view.Field]*view.Formula, error) {
	out := make(map[view.Field]*view.Formula, len(c.Sensors.Formulas))
	for field, src := range c.Sensors.Formulas {
		switch view.Field(field) {
		case view.FieldTemperature, view.FieldBattery, view.FieldHumidity:
		default:
			return nil, fmt.Errorf("sensors.formulas: unsupported reading %q", field)
		}
		f, err := view.ParseFormula(src)
		if err != nil {
			return nil, fmt.Errorf("sensors.formulas.%s: %w", field, err)
		}
		out[view.Field(field)] = f
	}
	return out, nil
}
