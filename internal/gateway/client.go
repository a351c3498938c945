package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"synthdesk/internal/auth"
)

// Client represents a single UI websocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	authed  bool
	session auth.Session
}

// Session returns the authenticated session. Zero value until login.
func (c *Client) Session() auth.Session { return c.session }

// SendJSON queues a payload for this client, dropping it if the queue is full.
func (c *Client) SendJSON(channel string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	env, err := json.Marshal(map[string]interface{}{
		"channel": channel,
		"data":    json.RawMessage(data),
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- env:
	default:
	}
}

// SendError reports a command failure back to this client.
func (c *Client) SendError(msg string) {
	c.SendJSON("error", map[string]string{"message": msg})
}

// sendInitialState replays the latest payload of every channel so the client
// renders current state before the next live update.
func (c *Client) sendInitialState() {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	for _, env := range c.hub.latest {
		select {
		case c.send <- env:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Coalesce queued messages into a single frame
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd Command
		if err := json.Unmarshal(msg, &cmd); err != nil {
			c.SendError("invalid command: " + err.Error())
			continue
		}

		if cmd.Type == CmdLogin {
			c.handleLogin(cmd)
			continue
		}
		if !c.authed {
			c.SendError("not authenticated")
			continue
		}
		if err := cmd.Validate(); err != nil {
			c.SendError(err.Error())
			continue
		}
		if c.hub.OnCommand != nil {
			c.hub.OnCommand(c, cmd)
		}
	}
}

func (c *Client) handleLogin(cmd Command) {
	if c.hub.Checker == nil {
		c.SendJSON("login", map[string]interface{}{"ok": true, "role": string(c.session.Role)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := c.hub.Checker.Check(ctx, cmd.User, cmd.Pass, cmd.Code)
	if err != nil {
		c.SendJSON("login", map[string]interface{}{"ok": false})
		return
	}
	c.session = sess
	c.authed = true
	c.SendJSON("login", map[string]interface{}{"ok": true, "role": string(sess.Role)})
}
