package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	ModeCharge    Mode = "charge"
	ModeDischarge Mode = "discharge"
	ModeBoth      Mode = "both"
)

type Config struct {
	LogLevel      zapcore.Level
	Card          CardConfig `mapstructure:"card"`
	MQTT          MQTTConfig `mapstructure:"mqtt"`
	HomeAssistant HAConfig   `mapstructure:"home_assistant"`

	Port     uint   `mapstructure:"port"`
	HttpLog  bool   `mapstructure:"http_log"`
	StateDir string `mapstructure:"state_dir"`
}

type CardConfig struct {
	Mode        string         `mapstructure:"mode"`
	MaxOutputKw float64        `mapstructure:"max_output_kw"`
	Entities    map[string]any `mapstructure:"entities"`
	Debug       bool           `mapstructure:"debug"`
}

type MQTTConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	BaseTopic string `mapstructure:"base_topic"`
}

type HAConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// Validate enforces the fatal configuration contract: an invalid mode or a
// non-positive output capacity aborts startup before any component is
// constructed.
func (c CardConfig) Validate() error {
	switch Mode(c.Mode) {
	case ModeCharge, ModeDischarge, ModeBoth:
	default:
		return fmt.Errorf("invalid mode %q: must be one of charge, discharge, both", c.Mode)
	}
	if !(c.MaxOutputKw > 0) {
		return errors.New("max_output_kw must be a positive number")
	}
	return nil
}

func (c CardConfig) ResolvedMode() Mode {
	return Mode(c.Mode)
}

// HasCharge reports whether the charge section is active for this mode.
func (m Mode) HasCharge() bool {
	return m != ModeDischarge
}

// HasDischarge reports whether the discharge section is active for this mode.
func (m Mode) HasDischarge() bool {
	return m != ModeCharge
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
