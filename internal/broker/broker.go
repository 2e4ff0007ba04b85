// Package broker runs an in-process MQTT broker so the twin, the simulator
// and the tests can talk MQTT without external infrastructure.
package broker

import (
	"fmt"
	"strings"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog/log"
)

type Broker struct {
	server *mochi.Server
	addr   string
}

// Start listens on addr (host:port or :port) and accepts every client.
func Start(addr string) (*Broker, error) {
	server := mochi.New(nil)
	if err := server.AddHook(&auth.AllowHook{}, nil); err != nil {
		return nil, fmt.Errorf("broker auth hook: %w", err)
	}
	tcp := listeners.NewTCP(listeners.Config{Type: "tcp", ID: "twin-tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("broker listen %s: %w", addr, err)
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("broker serve: %w", err)
	}
	log.Info().Str("component", "broker").Str("addr", addr).Msg("embedded mqtt broker running")
	return &Broker{server: server, addr: addr}, nil
}

// URL is the paho broker URL for local clients.
func (b *Broker) URL() string {
	if strings.HasPrefix(b.addr, ":") {
		return "tcp://localhost" + b.addr
	}
	return "tcp://" + b.addr
}

func (b *Broker) Close() error {
	return b.server.Close()
}
