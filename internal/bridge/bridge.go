// Package bridge drives a DMX universe from MQTT messages.
//
// Levels are set per channel by publishing a decimal value to
// <topic>/<channel>, or in batches by publishing a JSON list of
// {"channel": n, "value": v} objects to <topic>/set. Changes are flushed to
// the device at a fixed frame rate; the bridge announces itself on the
// retained <topic>/status topic.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const (
	connectTimeout    = 10 * time.Second
	subscribeTimeout  = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds

	statusOnline  = "online"
	statusOffline = "offline"
)

// Message errors; they are logged, never returned to the broker
var (
	ErrUnknownTopic = errors.New("topic not handled by the bridge")
	ErrBadPayload   = errors.New("malformed level payload")
	ErrBadChannel   = errors.New("channel out of range")
)

// Output is the DMX device the bridge writes to
type Output interface {
	SetLevel(ch int, level byte)
	Channels() int
	Update(force bool) error
}

// Config configures the MQTT side of the bridge
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
	FPS      int
}

// Command sets one channel level
type Command struct {
	Channel int `json:"channel"`
	Value   int `json:"value"`
}

// Bridge applies MQTT level messages to an Output. Messages arrive on paho
// goroutines; the bridge serializes every access to the output.
type Bridge struct {
	out    Output
	cfg    Config
	log    logrus.FieldLogger
	prefix string

	mu     sync.Mutex
	client mqtt.Client
}

// New returns a bridge for out; call Run to connect
func New(out Output, cfg Config, log logrus.FieldLogger) *Bridge {
	return &Bridge{
		out:    out,
		cfg:    cfg,
		log:    log.WithField("module", "mqtt"),
		prefix: strings.Trim(cfg.Topic, "/"),
	}
}

func (b *Bridge) statusTopic() string {
	return b.prefix + "/status"
}

// HandleMessage applies one MQTT message
func (b *Bridge) HandleMessage(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	switch rest {
	case "status":
		return nil
	case "set":
		var cmds []Command
		if err := json.Unmarshal(payload, &cmds); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return b.Apply(cmds)
	}

	ch, err := strconv.Atoi(rest)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadPayload, payload)
	}
	return b.Apply([]Command{{Channel: ch, Value: value}})
}

// Apply validates cmds and sets the levels. Nothing is applied if any
// command is invalid.
func (b *Bridge) Apply(cmds []Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	channels := b.out.Channels()
	for _, c := range cmds {
		if c.Channel < 1 || c.Channel >= channels {
			return fmt.Errorf("%w: %d, want 1-%d", ErrBadChannel, c.Channel, channels-1)
		}
		if c.Value < 0 || c.Value > 255 {
			return fmt.Errorf("%w: value %d for channel %d", ErrBadPayload, c.Value, c.Channel)
		}
	}
	for _, c := range cmds {
		b.out.SetLevel(c.Channel, byte(c.Value))
	}
	return nil
}

// Flush transmits pending level changes
func (b *Bridge) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.out.Update(false)
}

func (b *Bridge) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(b.cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(30 * time.Second).
		SetWill(b.statusTopic(), statusOffline, b.cfg.QoS, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.WithError(err).Warn("broker connection lost")
		})
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	return opts
}

// onConnect subscribes on every (re)connect; the session is clean
func (b *Bridge) onConnect(c mqtt.Client) {
	topic := b.prefix + "/+"
	token := c.Subscribe(topic, b.cfg.QoS, b.onMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		b.log.WithField("topic", topic).Error("subscribe timed out")
		return
	}
	if err := token.Error(); err != nil {
		b.log.WithError(err).WithField("topic", topic).Error("subscribe failed")
		return
	}
	c.Publish(b.statusTopic(), b.cfg.QoS, true, statusOnline)
	b.log.WithFields(logrus.Fields{
		"broker": b.cfg.Broker,
		"topic":  topic,
	}).Info("connected to broker")
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := b.HandleMessage(msg.Topic(), msg.Payload()); err != nil {
		b.log.WithError(err).WithField("topic", msg.Topic()).Warn("message ignored")
	}
}

// Run connects to the broker and flushes level changes at the configured
// frame rate until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if b.cfg.FPS < 1 {
		return fmt.Errorf("invalid frame rate %d", b.cfg.FPS)
	}

	b.client = mqtt.NewClient(b.clientOptions())
	token := b.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to %s: %w", b.cfg.Broker, err)
		}
	case <-ctx.Done():
		// Stops the connect retry loop
		b.client.Disconnect(0)
		return ctx.Err()
	}
	defer b.disconnect()

	ticker := time.NewTicker(time.Second / time.Duration(b.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.WithError(err).Error("failed to update DMX output")
			}
		}
	}
}

func (b *Bridge) disconnect() {
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	token := b.client.Publish(b.statusTopic(), b.cfg.QoS, true, statusOffline)
	token.WaitTimeout(time.Second)
	b.client.Disconnect(disconnectQuiesce)
	b.log.Info("disconnected from broker")
}
