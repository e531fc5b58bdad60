package broker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
)

// Channel pairs a logical channel name with its wire topic.
type Channel struct {
	Name  string `json:"name"`
	Topic string `json:"topic"`
}

// ChannelMap resolves between logical channels and broker topics.
// It is immutable after construction.
type ChannelMap struct {
	byName   map[string]string
	channels []Channel // sorted by name
	byLength []Channel // longest topic first, for prefix resolution
}

// NewChannelMap builds a map from channel name to topic. Topics must be
// non-empty and free of wildcards.
func NewChannelMap(topics map[string]string) (*ChannelMap, error) {
	m := &ChannelMap{byName: make(map[string]string, len(topics))}
	for name, topic := range topics {
		topic = strings.TrimRight(topic, "/")
		if name == "" {
			return nil, fmt.Errorf("%w: empty channel name", ErrUnknownChannel)
		}
		if err := mqtt.ValidatePublishTopic(topic); err != nil {
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		m.byName[name] = topic
		m.channels = append(m.channels, Channel{Name: name, Topic: topic})
	}

	sort.Slice(m.channels, func(i, j int) bool { return m.channels[i].Name < m.channels[j].Name })

	m.byLength = make([]Channel, len(m.channels))
	copy(m.byLength, m.channels)
	sort.SliceStable(m.byLength, func(i, j int) bool {
		return len(m.byLength[i].Topic) > len(m.byLength[j].Topic)
	})
	return m, nil
}

// Topic returns the topic configured for channel.
func (m *ChannelMap) Topic(channel string) (string, bool) {
	topic, ok := m.byName[channel]
	return topic, ok
}

// Resolve returns the channel whose topic equals topic or is its nearest
// ancestor. "house/doors/main" resolves to the channel on "house/doors".
func (m *ChannelMap) Resolve(topic string) (string, bool) {
	for _, ch := range m.byLength {
		if mqtt.WithinSubtree(topic, ch.Topic) {
			return ch.Name, true
		}
	}
	return "", false
}

// Channels returns every channel sorted by name.
func (m *ChannelMap) Channels() []Channel {
	out := make([]Channel, len(m.channels))
	copy(out, m.channels)
	return out
}

// Len returns the number of channels.
func (m *ChannelMap) Len() int {
	return len(m.channels)
}
