package mqtt

import "strings"

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "grayhome"

// Topics builds topic names under a household prefix.
//
//	topics := mqtt.NewTopics("grayhome")
//	topics.Channel("doors") // "grayhome/doors"
//	topics.Status()         // "grayhome/system/status"
type Topics struct {
	prefix string
}

// NewTopics returns topic builders for prefix. Surrounding slashes are
// trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the normalised prefix.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Status returns the retained online/offline status topic.
//
// Example: grayhome/system/status
func (t Topics) Status() string {
	return t.Prefix() + "/system/status"
}

// Channel returns the default topic for a logical channel.
//
// Example: grayhome/temperature
func (t Topics) Channel(name string) string {
	return t.Prefix() + "/" + name
}

// All returns a filter matching every topic under the prefix.
func (t Topics) All() string {
	return SubtreeFilter(t.Prefix())
}

// SubtreeFilter returns the subscription filter matching topic itself and
// every sub-topic beneath it.
func SubtreeFilter(topic string) string {
	return strings.TrimRight(topic, "/") + "/#"
}

// WithinSubtree reports whether topic equals base or lies beneath it.
// "house/doors/main" is within "house/doors"; "house/doorsx" is not.
func WithinSubtree(topic, base string) bool {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return false
	}
	if topic == base {
		return true
	}
	return strings.HasPrefix(topic, base+"/")
}

// ValidatePublishTopic rejects empty topics and topics containing wildcards.
func ValidatePublishTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	return nil
}

// ValidateFilter checks a subscription filter: non-empty, '+' and '#'
// only as whole levels, and '#' only as the last level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.ContainsAny(level, "+#") && len(level) != 1 {
			return ErrInvalidTopic
		}
		if level == "#" && i != len(levels)-1 {
			return ErrInvalidTopic
		}
	}
	return nil
}
