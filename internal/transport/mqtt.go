package transport

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

// MQTTPublisher publishes each snapshot as a retained message so late
// subscribers immediately get the current state.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

var _ Publisher = (*MQTTPublisher)(nil)

func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func (p *MQTTPublisher) Publish(ctx context.Context, s twin.State) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	token := p.client.Publish(p.topic, 1, true, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", p.topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", p.topic, ctx.Err())
	}
}
