package client

import (
	"context"
	"encoding/json"
	"fmt"

	"inkwell/internal/models"

	"github.com/gorilla/websocket"
)

// feedURL derives the websocket URL of the live feed from the base URL.
func (c *Client) feedURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws/feed"
	return u.String()
}

// Watch streams post events to fn until ctx is cancelled or the server closes
// the connection. A cancelled context is not reported as an error.
func (c *Client) Watch(ctx context.Context, fn func(models.PostEvent)) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.HTTPClient.Timeout,
		Jar:              c.HTTPClient.Jar,
	}
	conn, resp, err := dialer.DialContext(ctx, c.feedURL(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if resp != nil {
			return fmt.Errorf("feed handshake failed (%d): %w", resp.StatusCode, err)
		}
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		var event models.PostEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		fn(event)
	}
}
