package subscribers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mates/internal/adapters/ws"
	"mates/internal/adapters/ws/subscribers"
	"mates/internal/config"
	"mates/internal/domain"
	"mates/internal/event"
	"mates/internal/logger"
)

func TestBusEventsReachSubscribedChannels(t *testing.T) {
	log := logger.NewNop()
	bus := event.New(log)

	hub := ws.NewHub(context.Background(), log)
	hub.OnSubscribe(domain.WsChannelLinks, func() *domain.WsServerEvent {
		return &domain.WsServerEvent{Channel: domain.WsChannelLinks, Event: "ready"}
	})
	go hub.Run()
	t.Cleanup(hub.Stop)

	subscribers.Register(bus, hub)

	h := ws.NewHandler(hub, &config.Config{}, log)
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for _, ch := range []string{domain.WsChannelNavigation, domain.WsChannelAlerts, domain.WsChannelAuthState, domain.WsChannelLinks} {
		require.NoError(t, conn.WriteJSON(domain.WsClientMessage{Type: "subscribe", Channel: ch}))
	}

	readEvent := func() domain.WsServerEvent {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev domain.WsServerEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	}

	require.Equal(t, "ready", readEvent().Event)

	bus.Publish(domain.EventNameNavigationRequested, domain.EventNavigationRequested{Route: domain.RouteMain})
	bus.Publish(domain.EventNameAlertRaised, domain.EventAlertRaised{Alert: domain.Alert{Kind: domain.AlertSuccess}})
	bus.Publish(domain.EventNameAuthStateChanged, domain.EventAuthStateChanged{State: domain.AuthState{IsReady: true}})
	bus.Publish(domain.EventNameLinkResolved, domain.EventLinkResolved{Outcome: domain.NotAuthRelated()})
	bus.Publish(domain.EventNameLinkResolved, "wrong payload type")

	got := map[string]string{}
	for range 4 {
		ev := readEvent()
		got[ev.Channel] = ev.Event
	}

	assert.Equal(t, map[string]string{
		domain.WsChannelNavigation: domain.EventNameNavigationRequested,
		domain.WsChannelAlerts:     domain.EventNameAlertRaised,
		domain.WsChannelAuthState:  domain.EventNameAuthStateChanged,
		domain.WsChannelLinks:      domain.EventNameLinkResolved,
	}, got)
}

func TestLinkResolvedPayloadOmitsIdentity(t *testing.T) {
	log := logger.NewNop()
	bus := event.New(log)

	hub := ws.NewHub(context.Background(), log)
	hub.OnSubscribe(domain.WsChannelLinks, func() *domain.WsServerEvent {
		return &domain.WsServerEvent{Channel: domain.WsChannelLinks, Event: "ready"}
	})
	go hub.Run()
	t.Cleanup(hub.Stop)

	subscribers.Register(bus, hub)

	h := ws.NewHandler(hub, &config.Config{}, log)
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(domain.WsClientMessage{Type: "subscribe", Channel: domain.WsChannelLinks}))

	read := func() string {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(data)
	}

	require.Contains(t, read(), "ready")

	bus.Publish(domain.EventNameLinkResolved, domain.EventLinkResolved{Outcome: domain.AuthSuccess("x@y.com")})
	bus.Publish(domain.EventNameLinkResolved, domain.EventLinkResolved{Outcome: domain.AuthFailure("gotrue: POST /token: dial tcp 10.0.0.7:443")})

	success, failure := read(), read()

	assert.Contains(t, success, string(domain.OutcomeAuthSuccess))
	assert.Contains(t, failure, string(domain.OutcomeAuthFailure))
	for _, msg := range []string{success, failure} {
		assert.NotContains(t, msg, "x@y.com")
		assert.NotContains(t, msg, "10.0.0.7")
		assert.NotContains(t, msg, "user_identifier")
		assert.NotContains(t, msg, `"reason"`)
	}
}
