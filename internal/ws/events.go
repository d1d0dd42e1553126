package ws

import (
	"context"
	"errors"
	"log"

	"github.com/vectorlab/backend/internal/events"
)

// StartEventSubscriber forwards lab events to the owning session's client.
// Over Redis every instance receives every event; only the one holding the
// session's socket has anything to deliver.
func StartEventSubscriber(ctx context.Context, bus events.Bus) {
	if bus == nil {
		log.Println("[WS] Event bus not set; event subscriber not started")
		return
	}

	go func() {
		log.Printf("[WS] %s subscriber started", events.Channel)
		err := bus.Subscribe(ctx, func(e events.Event) { forwardEvent(LabHub, e) })
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[WS] %s subscriber stopped: %v", events.Channel, err)
		}
	}()
}

func forwardEvent(h *Hub, e events.Event) {
	switch e.Type {
	case events.ChallengeCompleted:
		h.SendToSession(e.SessionToken, map[string]interface{}{
			"type":         "challenge_completed",
			"challenge_id": e.ChallengeID,
			"seconds":      e.Seconds,
		})

	case events.SessionExpired:
		if h.SendToSession(e.SessionToken, map[string]interface{}{
			"type":    "session_expired",
			"message": "Session expired after inactivity",
		}) {
			log.Printf("[WS] Closing socket of expired session %s", e.SessionToken)
		}
		h.CloseSession(e.SessionToken)

	case events.ChallengeStarted, events.PredictionScored:
		// State already went out with the reply to the triggering message.

	default:
		log.Printf("[WS] unknown event type: %s", e.Type)
	}
}
