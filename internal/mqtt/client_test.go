package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatestreamTopicParse(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/switch/inverter_force_charge/state"
	r := statestreamTopicExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][1], "switch", "domain extract")
	assert.Equal(matches[0][2], "inverter_force_charge", "object extract")
	assert.Equal(matches[0][3], "state", "field extract")
}

func TestStatestreamTopicParseAttributes(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	topic := "loremTopic/number/charge_power_2/last_changed"
	r := statestreamTopicExtractor(baseTopic)
	matches := r.FindAllStringSubmatch(topic, 1)

	assert.Equal(matches[0][2], "charge_power_2", "object extract")
	assert.Equal(matches[0][3], "last_changed", "field extract")
}

func TestStatestreamTopicParseFail(t *testing.T) {

	assert := assert.New(t)

	baseTopic := "loremTopic"
	r := statestreamTopicExtractor(baseTopic)

	for _, topic := range []string{
		"otherTopic/switch/my_device/state",
		"loremTopic/switch/my_device",
		"loremTopic/switch/my_device/state/extra",
		"loremTopic/Switch/my_device/state",
	} {
		matches := r.FindAllStringSubmatch(topic, 1)
		assert.Equal(len(matches), 0, "no matches for %s", topic)
	}
}
