package dmx

import (
	"time"

	"github.com/allbin/go-dmx/ftdi"
	"github.com/sirupsen/logrus"
)

// Config holds the configuration for a DMX device
type Config struct {
	Driver       ftdi.Driver
	Logger       logrus.FieldLogger
	Channels     int           // universe size including the start code slot
	ReadTimeout  time.Duration // how long to wait for a widget reply
	RequestDelay time.Duration // pause between a widget request and reading its reply
}

// Option is a functional option for configuring a device
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Driver:       ftdi.DefaultDriver(),
		Logger:       logrus.StandardLogger(),
		Channels:     MaxChannels,
		ReadTimeout:  10 * time.Second,
		RequestDelay: 5 * time.Millisecond,
	}
}

func newConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// WithDriver sets the USB-serial driver used to reach the hardware
func WithDriver(drv ftdi.Driver) Option {
	return func(c *Config) error {
		if drv == nil {
			return ErrInvalidConfig
		}
		c.Driver = drv
		return nil
	}
}

// WithLogger sets the logger; warnings about firmware quirks and ignored
// channel accesses are reported through it
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Config) error {
		if log == nil {
			return ErrInvalidConfig
		}
		c.Logger = log
		return nil
	}
}

// WithChannels sets the initial universe size; it is clamped to 24-512
func WithChannels(n int) Option {
	return func(c *Config) error {
		c.Channels = clampChannels(n)
		return nil
	}
}

// WithReadTimeout sets how long a widget reply may take to arrive
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithRequestDelay sets the pause between a widget request and its reply
func WithRequestDelay(delay time.Duration) Option {
	return func(c *Config) error {
		if delay < 0 {
			return ErrInvalidConfig
		}
		c.RequestDelay = delay
		return nil
	}
}
