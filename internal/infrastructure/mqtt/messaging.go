package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps outbound payloads at 1 MB, below common broker limits.
const maxPayloadSize = 1 << 20

// await waits for a paho token within the configured acknowledgement
// window and wraps any failure in sentinel.
func (c *Client) await(token pahomqtt.Token, sentinel error) error {
	limit := publishTimeout(c.cfg)
	if !token.WaitTimeout(limit) {
		return fmt.Errorf("%w: no acknowledgement within %v", sentinel, limit)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

// Publish sends payload to a concrete topic and waits for the broker to
// acknowledge it.
//
// Parameters:
//   - topic: Destination; wildcards are rejected
//   - payload: At most 1 MB
//   - qos: 0, 1 or 2
//   - retained: Ask the broker to keep the message for late subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrPublishFailed wrapping the broker's answer
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case ValidatePublishTopic(topic) != nil:
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	return c.await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// Subscribe installs handler for every message matching filter. Filters
// may use + and # wildcards. The filter is tracked only once the broker
// has accepted it.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrSubscribeFailed
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	switch {
	case ValidateFilter(filter) != nil:
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	case !c.IsConnected():
		return ErrNotConnected
	}

	if err := c.await(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		return err
	}

	c.subMu.Lock()
	c.subscriptions[filter] = qos
	c.subMu.Unlock()
	return nil
}

// Unsubscribe drops a filter. Messages already in flight may still reach
// the old handler.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()

	return c.await(c.client.Unsubscribe(filter), ErrUnsubscribeFailed)
}
