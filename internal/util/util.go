package util

import (
	"schedcard/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Card: config.CardConfig{
			Mode:        string(config.ModeBoth),
			MaxOutputKw: 5.0,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "homeassistant_statestream",
		},
		StateDir: ".",
		Port:     8080,
	}
}
