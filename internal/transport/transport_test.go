package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/broker"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
	"github.com/ANIKETSHETTY47/structural-health-twin/internal/twin"
)

func state(overall int) twin.State {
	return twin.State{
		OverallHealth: overall,
		Pillars:       map[string]twin.PillarState{"P1": {Health: overall}},
		Cycle:         "c-1",
		Timestamp:     time.Unix(1700000000, 0).UTC(),
	}
}

func TestFanoutIsBestEffort(t *testing.T) {
	var delivered []string
	ok := func(name string) Publisher {
		return PublisherFunc(func(context.Context, twin.State) error {
			delivered = append(delivered, name)
			return nil
		})
	}
	boom := errors.New("sink down")

	f := NewFanout().
		Add("first", ok("first")).
		Add("broken", PublisherFunc(func(context.Context, twin.State) error { return boom })).
		Add("last", ok("last"))
	assert.Equal(t, 3, f.Len())

	err := f.Publish(context.Background(), state(90))
	require.Error(t, err)
	assert.Equal(t, []string{"first", "last"}, delivered)

	var terr *domain.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "broken", terr.Sink)
	assert.ErrorIs(t, err, boom)
}

func TestFanoutDropsStaleSnapshots(t *testing.T) {
	var got []uint64
	f := NewFanout().Add("rec", PublisherFunc(func(_ context.Context, s twin.State) error {
		got = append(got, s.Seq)
		return nil
	}))

	tw, err := twin.New(twin.DefaultPolicy())
	require.NoError(t, err)
	stale, err := tw.Repair("P1", 10)
	require.NoError(t, err)
	fresh := tw.Apply(domain.AnomalyResult{HealthScore: 0, Status: domain.StatusCritical})

	// the repair publish loses the race to the newer cycle snapshot
	require.NoError(t, f.Publish(context.Background(), fresh))
	require.NoError(t, f.Publish(context.Background(), stale))
	require.NoError(t, f.Publish(context.Background(), fresh))
	assert.Equal(t, []uint64{fresh.Seq, fresh.Seq}, got)
}

func TestEmptyFanout(t *testing.T) {
	assert.NoError(t, NewFanout().Publish(context.Background(), state(100)))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) twin.State {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var s twin.State
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestHubBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, state(93)))
	assert.Equal(t, 93, readState(t, a).OverallHealth)
	assert.Equal(t, 93, readState(t, b).Pillars["P1"].Health)
}

func TestHubSendsLatestOnJoin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	require.NoError(t, hub.Publish(ctx, state(71)))
	late := dial(t, srv)
	assert.Equal(t, 71, readState(t, late).OverallHealth)
}

func TestHubForgetsDisconnectedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, state(50)))
}

func TestHubPublishAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	err := hub.Publish(context.Background(), state(10))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestMQTTPublisherRetainsState(t *testing.T) {
	b, err := broker.Start("localhost:18832")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	connect := func(id string) mqtt.Client {
		c := mqtt.NewClient(mqtt.NewClientOptions().AddBroker(b.URL()).SetClientID(id))
		token := c.Connect()
		require.True(t, token.WaitTimeout(5*time.Second))
		require.NoError(t, token.Error())
		t.Cleanup(func() { c.Disconnect(100) })
		return c
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pub := NewMQTTPublisher(connect("twin"), "twin/state")
	require.NoError(t, pub.Publish(ctx, state(88)))

	// subscribing after the publish still yields the retained snapshot
	got := make(chan []byte, 1)
	token := connect("observer").Subscribe("twin/state", 1, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case got <- msg.Payload():
		default:
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	select {
	case payload := <-got:
		var s twin.State
		require.NoError(t, json.Unmarshal(payload, &s))
		assert.Equal(t, 88, s.OverallHealth)
		assert.Equal(t, "c-1", s.Cycle)
	case <-time.After(5 * time.Second):
		t.Fatal("retained state not delivered")
	}
}
