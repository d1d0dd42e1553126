package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/lab"
	"github.com/vectorlab/backend/internal/prediction"
	"github.com/vectorlab/backend/internal/vector"
)

// Lab message data types
type DragStartData struct {
	VectorID int  `json:"vector_id"`
	Tail     bool `json:"tail"`
}

type DragData struct {
	VectorID int     `json:"vector_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Tail     bool    `json:"tail"`
}

type VectorData struct {
	VectorID int `json:"vector_id"`
}

type ChallengeData struct {
	ChallengeID int `json:"challenge_id"`
}

// LabHub is the single hub for all lab sessions.
var LabHub *Hub

func init() {
	LabHub = NewHub()
	go runLabHub(LabHub)
}

// HandleWebSocket upgrades a lab session to a WebSocket. The session key has
// already been checked by the router.
func HandleWebSocket(c *gin.Context) {
	token := c.Param("token")
	if lab.Manager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "lab not initialized"})
		return
	}
	s, err := lab.Manager.Get(token)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:  conn,
		token: token,
		send:  make(chan []byte, sendBuffer),
	}

	s.OnTick(func(challengeID, elapsed int) {
		LabHub.SendToSession(token, map[string]interface{}{
			"type":         "timer_tick",
			"challenge_id": challengeID,
			"elapsed":      elapsed,
			"display":      challenge.FormatElapsed(elapsed),
		})
	})

	LabHub.register <- client

	go client.writePump()
	go client.readPump()
}

// runLabHub tracks connections; a reconnect replaces the previous socket.
func runLabHub(h *Hub) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if oldClient, exists := h.clients[client.token]; exists {
				log.Printf("[WS] Session %s reconnecting - closing old connection", client.token)
				if err := oldClient.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("[WS] Error writing close control to old client %s: %v", oldClient.token, err)
				}
				oldClient.conn.Close()
				oldClient.closeSend()
			}
			h.clients[client.token] = client
			h.mu.Unlock()

			log.Printf("[WS] Session %s connected", client.token)
			if lab.Manager != nil {
				if s, err := lab.Manager.Get(client.token); err == nil {
					client.sendState(s)
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.token]; ok && cur == client {
				delete(h.clients, client.token)
				client.closeSend()
				log.Printf("[WS] Session %s disconnected", client.token)
			}
			h.mu.Unlock()
		}
	}
}

// readPump reads lab events from the socket and applies them in order.
func (c *Client) readPump() {
	defer func() {
		LabHub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for session %s: %v", c.token, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage processes one client message.
func (c *Client) handleMessage(msg WSMessage) {
	s, err := lab.Manager.Get(c.token)
	if err != nil {
		c.sendError("Session not found")
		return
	}

	switch msg.Type {
	case "drag_start":
		var data DragStartData
		if !c.decode(msg, &data) {
			return
		}
		if c.fail(s.BeginDrag(data.VectorID)) {
			return
		}
		c.sendState(s)

	case "drag":
		var data DragData
		if !c.decode(msg, &data) {
			return
		}
		_, err := s.UpdateVectorEndpoint(data.VectorID, vector.NewPoint(data.X, data.Y), data.Tail)
		if c.fail(err) {
			return
		}
		c.sendState(s)

	case "drag_end":
		s.EndDrag()
		c.sendState(s)

	case "drag_label":
		var data DragData
		if !c.decode(msg, &data) {
			return
		}
		_, err := s.DragAngleLabel(data.VectorID, vector.NewPoint(data.X, data.Y))
		if c.fail(err) {
			return
		}
		c.sendState(s)

	case "toggle_reference":
		var data VectorData
		if !c.decode(msg, &data) {
			return
		}
		_, err := s.ToggleAngleReference(data.VectorID)
		if c.fail(err) {
			return
		}
		c.sendState(s)

	case "reset_vectors":
		s.ResetVectors()
		c.sendState(s)

	case "submit_prediction":
		var data prediction.Prediction
		if !c.decode(msg, &data) {
			return
		}
		res, err := s.SubmitPrediction(data)
		if c.fail(err) {
			return
		}
		c.sendJSON(map[string]interface{}{
			"type":   "prediction_result",
			"result": res,
		})
		c.sendState(s)

	case "reset_prediction":
		s.ResetPrediction()
		c.sendState(s)

	case "start_challenge":
		var data ChallengeData
		if !c.decode(msg, &data) {
			return
		}
		if c.fail(s.StartChallenge(data.ChallengeID)) {
			return
		}
		c.sendState(s)

	case "dismiss_intro":
		if c.fail(s.DismissIntro()) {
			return
		}
		c.sendState(s)

	case "show_hint":
		if _, err := s.ShowHint(); c.fail(err) {
			return
		}
		c.sendState(s)

	case "toggle_real_world":
		if _, err := s.ToggleRealWorldExample(); c.fail(err) {
			return
		}
		c.sendState(s)

	case "reset_challenge":
		s.ResetChallenge()
		c.sendState(s)

	case "get_state":
		c.sendState(s)

	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) decode(msg WSMessage, v interface{}) bool {
	if len(msg.Data) == 0 {
		c.sendError("Missing data for " + msg.Type)
		return false
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError("Invalid data for " + msg.Type)
		return false
	}
	return true
}

// fail reports err to the client. Rejected events leave the session unchanged.
func (c *Client) fail(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, lab.ErrSessionClosed):
		c.sendJSON(map[string]interface{}{"type": "session_expired", "message": "Session has ended"})
	default:
		c.sendError(err.Error())
	}
	return true
}

func (c *Client) sendState(s *lab.Session) {
	c.sendJSON(map[string]interface{}{
		"type":  "lab_state",
		"state": s.State(),
	})
}
