package staging

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

// MQTTSlot keeps the most recent payload received on a topic. Decoding is
// deferred to Latest so a bad message only fails the cycle that reads it.
type MQTTSlot struct {
	topic       string
	defaultRate float64

	mu       sync.Mutex
	payload  []byte
	received time.Time
}

var _ Slot = (*MQTTSlot)(nil)

func NewMQTTSlot(topic string, defaultRate float64) *MQTTSlot {
	return &MQTTSlot{topic: topic, defaultRate: defaultRate}
}

// Subscribe attaches the slot to the broker.
func (s *MQTTSlot) Subscribe(client mqtt.Client) error {
	if token := client.Subscribe(s.topic, 1, s.handle); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	log.Info().Str("component", "staging").Str("topic", s.topic).Msg("reading slot subscribed")
	return nil
}

func (s *MQTTSlot) handle(_ mqtt.Client, msg mqtt.Message) {
	s.Store(msg.Payload())
}

// Store replaces the staged payload.
func (s *MQTTSlot) Store(payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)

	s.mu.Lock()
	s.payload = cp
	s.received = time.Now()
	s.mu.Unlock()
}

// Received is when the current payload arrived; zero if none has.
func (s *MQTTSlot) Received() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *MQTTSlot) Latest(_ context.Context) (domain.RawReading, error) {
	s.mu.Lock()
	payload := s.payload
	s.mu.Unlock()

	if payload == nil {
		return domain.RawReading{}, ErrNoReading
	}
	return DecodeReading(payload, s.defaultRate)
}
