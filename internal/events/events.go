// Package events carries lab notifications between the session layer and the
// WebSocket layer. Events are notifications only; session state never depends
// on whether one was delivered.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Channel is the pub/sub channel every lab event is published on.
const Channel = "lab_events"

type Type string

const (
	ChallengeStarted   Type = "challenge_started"
	ChallengeCompleted Type = "challenge_completed"
	PredictionScored   Type = "prediction_scored"
	SessionExpired     Type = "session_expired"
)

var ErrBusClosed = errors.New("event bus closed")

// Event is one lab notification, scoped to a session.
type Event struct {
	Type         Type      `json:"type"`
	SessionToken string    `json:"session_token"`
	ChallengeID  int       `json:"challenge_id,omitempty"`
	Seconds      int       `json:"seconds,omitempty"`
	Accuracy     string    `json:"accuracy,omitempty"`
	At           time.Time `json:"at"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus publishes events and fans them out to subscribers.
type Bus interface {
	Publisher
	// Subscribe calls fn for every event until ctx is done. It blocks.
	Subscribe(ctx context.Context, fn func(Event)) error
	Close() error
}
