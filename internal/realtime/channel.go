package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"chat-client/internal/models"
	"chat-client/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

var ErrClosed = errors.New("channel closed")

// Channel is the bidirectional streaming connection scoped to one room/user
// pair. Inbound events are delivered on Events in arrival order; the channel
// is closed when the connection ends, however it ends.
type Channel struct {
	conn   *websocket.Conn
	send   chan models.Event
	events chan models.Event
	done   chan struct{}
	once   sync.Once
}

// Dial opens the streaming connection. Callers own the returned Channel and
// must Close it on every exit path.
func Dial(ctx context.Context, wsURL string) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		conn:   conn,
		send:   make(chan models.Event, 256),
		events: make(chan models.Event, 256),
		done:   make(chan struct{}),
	}
	go ch.readPump()
	go ch.writePump()
	return ch, nil
}

// Events yields inbound events in arrival order. The channel is closed when
// the connection goes away.
func (c *Channel) Events() <-chan models.Event {
	return c.events
}

// Close tears down the connection. Idempotent; close errors are ignored.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Closed reports whether the channel has been torn down.
func (c *Channel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) SendMessage(content string) error {
	return c.enqueue(models.Event{Type: models.EventTypeMessage, Content: content})
}

func (c *Channel) SendTyping(state bool) error {
	return c.enqueue(models.Event{Type: models.EventTypeTyping, State: state})
}

func (c *Channel) SendReaction(messageID, emoji, action string) error {
	return c.enqueue(models.Event{
		Type:      models.EventTypeReaction,
		MessageID: messageID,
		Emoji:     emoji,
		Action:    action,
	})
}

func (c *Channel) enqueue(ev models.Event) error {
	select {
	case <-c.done:
		return ErrClosed
	case c.send <- ev:
		return nil
	default:
		return ErrClosed
	}
}

func (c *Channel) readPump() {
	defer func() {
		c.Close()
		close(c.events)
	}()

	// Set read deadline and pong handler for connection health
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Debug("channel read error: %v", err)
			}
			return
		}

		var ev models.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			logger.Debug("dropping malformed event: %v", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				logger.Debug("channel write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
