package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/invalidate"
)

func TestClientAppliesEventsToCache(t *testing.T) {
	hub := newTestHub(t)
	server := startServer(t, hub)

	cache := invalidate.NewCache(nil)
	cache.Register(invalidate.QueryKey{"projects", "list"})
	cache.Register(invalidate.QueryKey{"people", "list"})

	client := NewClient(cache, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- client.Listen(ctx, "ws://"+server.Addr()+"/ws")
	}()

	waitFor(t, func() bool { return server.ClientCount() == 1 })

	hub.Publish(events.New(events.EntityProjects, events.MutationUpdate, 9))

	waitFor(t, func() bool {
		return cache.Stale(invalidate.QueryKey{"projects", "list"})
	})
	if cache.Stale(invalidate.QueryKey{"people", "list"}) {
		t.Error("unrelated query was invalidated")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen returned error after cancel: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestClientDropsMalformedFrames(t *testing.T) {
	// A raw server that sends garbage, then an invalid event, then a
	// valid one. Only the valid frame may touch the cache.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageText, []byte("not json"))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"entity":"widgets","mutation":"create"}`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"entity":"items","mutation":"delete","id":5}`))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cache := invalidate.NewCache(nil)
	cache.Register(invalidate.QueryKey{"items", "list"})

	client := NewClient(cache, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = client.Listen(ctx, "ws://"+strings.TrimPrefix(srv.URL, "http://")+"/")
	}()

	waitFor(t, func() bool {
		return cache.Stale(invalidate.QueryKey{"items", "list"})
	})
}

func TestClientNDJSON(t *testing.T) {
	hub := newTestHub(t)
	server := startServer(t, hub)

	// Backlog published before the client connects.
	hub.Publish(events.New(events.EntityCheckins, events.MutationCreate, 3))

	cache := invalidate.NewCache(nil)
	cache.Register(invalidate.QueryKey{"items", "agenda"})

	client := NewClient(cache, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = client.ListenNDJSON(ctx, "http://"+server.Addr()+"/events")
	}()

	// A checkin change also invalidates item queries.
	waitFor(t, func() bool {
		return cache.Stale(invalidate.QueryKey{"items", "agenda"})
	})
}
