// Package mqtt wraps the paho client for the host's statestream: a topic
// tree mirroring every entity's state, attributes and change stamps.
package mqtt

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"schedcard/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	FieldState       = "state"
	FieldAttributes  = "attributes"
	FieldLastChanged = "last_changed"
	FieldLastUpdated = "last_updated"
)

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port))
	opts.SetClientID(fmt.Sprintf("schedcard_%d", rand.IntN(1000)))
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	return opts
}

func CreateStatestreamClient(cfg *config.Config, opts *mqtt.ClientOptions,
	onConnectionLostHandler func(mqtt.Client, error)) *StatestreamClient {
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &StatestreamClient{
		client:      mqtt.NewClient(opts),
		cfg:         cfg.MQTT,
		topicRegexp: statestreamTopicExtractor(cfg.MQTT.BaseTopic),
	}
}

type StatestreamClient struct {
	client      mqtt.Client
	cfg         config.MQTTConfig
	topicRegexp *regexp.Regexp
}

// StatestreamMessage is one parsed statestream topic update.
type StatestreamMessage struct {
	EntityID string
	Field    string
	Payload  string
}

func statestreamTopicExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/([a-z_]+)/([a-z0-9_]+)/([a-z_]+)$", baseTopic))
}

// ParseStatestreamMessage maps a raw MQTT message onto an entity field
// update. Topics outside the statestream layout return an error.
func (c *StatestreamClient) ParseStatestreamMessage(msg mqtt.Message) (*StatestreamMessage, error) {
	matches := c.topicRegexp.FindAllStringSubmatch(msg.Topic(), 1)
	if len(matches) == 0 || len(matches[0]) != 4 {
		return nil, errors.New("not a statestream topic")
	}
	return &StatestreamMessage{
		EntityID: fmt.Sprintf("%s.%s", matches[0][1], matches[0][2]),
		Field:    matches[0][3],
		Payload:  string(msg.Payload()),
	}, nil
}

func (c *StatestreamClient) SubscribeToStatestream(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(fmt.Sprintf("%s/#", c.cfg.BaseTopic), 0, handler, continuation, timeout)
}

func (c *StatestreamClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *StatestreamClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *StatestreamClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}
