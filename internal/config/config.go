// Package config loads dmxctl settings from flags, environment and an
// optional config file through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-dmx"
	"github.com/allbin/go-dmx/ftdi"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. DMX_MQTT_BROKER
const EnvPrefix = "DMX"

// ErrInvalid is returned for values outside their accepted range
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete dmxctl configuration
type Config struct {
	Log      LogConfig    `mapstructure:"log"`
	Device   DeviceConfig `mapstructure:"device"`
	Channels int          `mapstructure:"channels"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
}

// LogConfig selects the log level
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DeviceConfig selects the DMX interface
type DeviceConfig struct {
	Description  string        `mapstructure:"description"`
	Serial       string        `mapstructure:"serial"`
	Index        int           `mapstructure:"index"`
	ProOnly      bool          `mapstructure:"pro-only"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	RequestDelay time.Duration `mapstructure:"request-delay"`
}

// MQTTConfig configures the MQTT bridge
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client-id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
	FPS      int    `mapstructure:"fps"`
}

// SetDefaults registers the default of every key so environment overrides
// reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("device.description", "")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.index", 0)
	v.SetDefault("device.pro-only", false)
	v.SetDefault("device.read-timeout", 10*time.Second)
	v.SetDefault("device.request-delay", 5*time.Millisecond)
	v.SetDefault("channels", dmx.MaxChannels)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client-id", "dmxctl")
	v.SetDefault("mqtt.topic", "dmx")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.fps", 30)
}

// Load reads file (if not empty) and the environment into v and returns the
// resulting configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot check by type
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if c.Device.Index < 0 {
		return fmt.Errorf("%w: device.index %d is negative", ErrInvalid, c.Device.Index)
	}
	if c.Device.ReadTimeout <= 0 {
		return fmt.Errorf("%w: device.read-timeout must be positive", ErrInvalid)
	}
	if c.Device.RequestDelay < 0 {
		return fmt.Errorf("%w: device.request-delay is negative", ErrInvalid)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos %d, want 0-2", ErrInvalid, c.MQTT.QoS)
	}
	if c.MQTT.FPS < 1 || c.MQTT.FPS > 44 {
		return fmt.Errorf("%w: mqtt.fps %d, want 1-44", ErrInvalid, c.MQTT.FPS)
	}
	if strings.Trim(c.MQTT.Topic, "/") == "" {
		return fmt.Errorf("%w: mqtt.topic is empty", ErrInvalid)
	}
	return nil
}

// Filter returns the bridge selection for the configured device
func (d DeviceConfig) Filter() ftdi.Filter {
	return ftdi.Filter{
		Description: d.Description,
		Serial:      d.Serial,
		Index:       d.Index,
	}
}

// Explicit reports whether a specific bridge was requested, as opposed to
// picking the best one attached.
func (d DeviceConfig) Explicit() bool {
	return d.Description != "" || d.Serial != "" || d.Index != 0
}

// Options returns the device options for the configured timing and universe
// size.
func (c *Config) Options() []dmx.Option {
	return []dmx.Option{
		dmx.WithChannels(c.Channels),
		dmx.WithReadTimeout(c.Device.ReadTimeout),
		dmx.WithRequestDelay(c.Device.RequestDelay),
	}
}
