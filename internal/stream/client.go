package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/coder/websocket"

	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/invalidate"
)

// Client consumes the event feed and applies each change to a local
// query cache. Malformed frames are dropped with a log line; a bad
// frame never terminates the stream.
type Client struct {
	cache  *invalidate.Cache
	logger *log.Logger
}

// NewClient creates a client that applies received events to cache.
func NewClient(cache *invalidate.Cache, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{cache: cache, logger: logger}
}

// Listen dials the WebSocket endpoint and applies events until the
// context is cancelled or the connection drops.
func (c *Client) Listen(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connection closed: %w", err)
		}
		c.apply(data)
	}
}

// ListenNDJSON consumes the newline-delimited JSON endpoint. It blocks
// until the context is cancelled or the server closes the response.
func (c *Client) ListenNDJSON(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, url)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		c.apply(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("stream read error: %w", err)
	}
	return nil
}

// apply decodes one frame and feeds it to the cache. Invalid frames
// are logged and skipped.
func (c *Client) apply(data []byte) {
	var ev events.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		c.logger.Printf("Dropping malformed frame: %v", err)
		return
	}
	if err := ev.Validate(); err != nil {
		c.logger.Printf("Dropping invalid event: %v", err)
		return
	}
	if n := c.cache.Apply(ev); n > 0 {
		c.logger.Printf("Event %s invalidated %d queries", ev, n)
	}
}
