// Package lab holds the per-learner state of the vector lab: the draggable
// forces, the last prediction, the challenge engine and the panel flags the
// UI gates on. Every exported Session method runs under the session lock, so
// one event is fully applied before the next is looked at.
package lab

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/events"
	"github.com/vectorlab/backend/internal/prediction"
	"github.com/vectorlab/backend/internal/vector"
)

var (
	ErrVectorNotFound  = errors.New("vector not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// SuccessBannerDuration is how long the completion banner stays up.
const SuccessBannerDuration = 8 * time.Second

// View is the set of presentation flags. None of them affect the numbers.
type View struct {
	PredictionPanel bool `json:"prediction_panel"`
	Intro           bool `json:"intro"`
	Hint            bool `json:"hint"`
	Explanation     bool `json:"explanation"`
	RealWorld       bool `json:"real_world"`
	PredictionTips  bool `json:"prediction_tips"`
	Success         bool `json:"success"`
}

// Outcome is what a vector change did to the resultant and the active challenge.
type Outcome struct {
	Resultant vector.Resultant `json:"resultant"`
	Progress  int              `json:"progress"`
	Completed bool             `json:"completed"`
	Seconds   int              `json:"seconds,omitempty"`
}

// Session is one learner's lab.
type Session struct {
	Token      string
	CreatedAt  time.Time
	lastActive time.Time

	vectors map[int]*vector.Vector
	order   []int
	width   float64
	height  float64

	dragging     int
	resultant    vector.Resultant
	prediction   *prediction.Result
	view         View
	successUntil time.Time

	engine    *challenge.Engine
	publisher events.Publisher
	clock     challenge.Clock
	closed    bool

	mu sync.Mutex
}

type SessionOption func(*Session)

// WithCanvas lays the default vectors out on a width x height canvas.
func WithCanvas(width, height float64) SessionOption {
	return func(s *Session) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithPublisher sends lab events to p. Without one events are dropped.
func WithPublisher(p events.Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithEngine replaces the default challenge engine.
func WithEngine(e *challenge.Engine) SessionOption {
	return func(s *Session) { s.engine = e }
}

// WithSessionClock sets the clock used for activity stamps and the banner timeout.
func WithSessionClock(c challenge.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// NewSession creates a lab with the default vectors and challenge catalog.
func NewSession(token string, opts ...SessionOption) *Session {
	s := &Session{
		Token:  token,
		width:  vector.CanvasWidth,
		height: vector.CanvasHeight,
		clock:  challenge.SystemClock,
		view:   View{PredictionPanel: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = challenge.NewDefaultEngine(challenge.WithClock(s.clock))
	}
	s.CreatedAt = s.clock.Now()
	s.lastActive = s.CreatedAt
	s.loadDefaultsLocked()
	return s
}

// OnTick forwards challenge timer ticks to fn.
func (s *Session) OnTick(fn challenge.TickFunc) {
	s.engine.OnTick(fn)
}

func (s *Session) loadDefaultsLocked() {
	s.vectors = make(map[int]*vector.Vector)
	s.order = s.order[:0]
	for _, v := range vector.DefaultSetOn(s.width, s.height) {
		v := v
		s.vectors[v.ID] = &v
		s.order = append(s.order, v.ID)
	}
	s.dragging = 0
	s.resultant = vector.Sum(s.vectorsLocked())
}

func (s *Session) vectorsLocked() []vector.Vector {
	out := make([]vector.Vector, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.vectors[id])
	}
	return out
}

func (s *Session) touchLocked() {
	s.lastActive = s.clock.Now()
}

// LastActive is when the session last handled an event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) lookupLocked(id int) (*vector.Vector, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	v, ok := s.vectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrVectorNotFound, id)
	}
	return v, nil
}

// UpdateVectorEndpoint moves vector id. A tail drag translates the whole
// vector and keeps its components; a head drag moves only the end point.
func (s *Session) UpdateVectorEndpoint(id int, p vector.Point, isTailDrag bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.lookupLocked(id)
	if err != nil {
		return Outcome{}, err
	}
	p = vector.NewPoint(p.X, p.Y)
	if isTailDrag {
		d := v.End.Minus(v.Start)
		v.Start = p
		v.End = p.Plus(d)
	} else {
		v.End = p
	}
	s.touchLocked()
	return s.onVectorChangedLocked(), nil
}

// onVectorChangedLocked recomputes the resultant and, with a challenge
// running, its progress and completion.
func (s *Session) onVectorChangedLocked() Outcome {
	s.resultant = vector.Sum(s.vectorsLocked())
	out := Outcome{Resultant: s.resultant}

	active, ok := s.engine.Active()
	if !ok {
		return out
	}
	if p, err := s.engine.UpdateProgress(s.resultant); err == nil {
		out.Progress = p
	}
	done, err := s.engine.CheckCompletion(s.resultant)
	if err != nil || !done {
		return out
	}

	secs, _ := s.engine.CompletionSeconds(active.ID)
	out.Completed = true
	out.Seconds = secs
	s.view.Success = true
	s.view.Explanation = true
	s.successUntil = s.clock.Now().Add(SuccessBannerDuration)

	log.Printf("[LAB] Session %s completed challenge %d in %ds", s.Token, active.ID, secs)
	s.publish(events.Event{
		Type:        events.ChallengeCompleted,
		ChallengeID: active.ID,
		Seconds:     secs,
	})
	return out
}

// BeginDrag marks id as the vector under the pointer.
func (s *Session) BeginDrag(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(id); err != nil {
		return err
	}
	s.dragging = id
	s.touchLocked()
	return nil
}

func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = 0
}

// Dragging returns the id of the vector being dragged, or 0.
func (s *Session) Dragging() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// RenderOrder lists vector ids in paint order, the dragged one last.
func (s *Session) RenderOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderOrderLocked()
}

func (s *Session) renderOrderLocked() []int {
	out := make([]int, 0, len(s.order))
	for _, id := range s.order {
		if id != s.dragging {
			out = append(out, id)
		}
	}
	if s.dragging != 0 {
		out = append(out, s.dragging)
	}
	return out
}

// DragAngleLabel places the angle label of vector id at the pointer's
// distance from the tail, in label units, clamped to the allowed range.
func (s *Session) DragAngleLabel(id int, p vector.Point) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.lookupLocked(id)
	if err != nil {
		return 0, err
	}
	d := v.Start.DistanceTo(vector.NewPoint(p.X, p.Y)) / vector.LabelUnit
	v.LabelDistance = math.Max(vector.MinLabelDistance, math.Min(vector.MaxLabelDistance, d))
	s.touchLocked()
	return v.LabelDistance, nil
}

// ToggleAngleReference switches the axis vector id's angle is measured from.
func (s *Session) ToggleAngleReference(id int) (vector.AngleReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.lookupLocked(id)
	if err != nil {
		return "", err
	}
	v.Reference = v.Reference.Toggle()
	s.touchLocked()
	return v.Reference, nil
}

func (s *Session) ComputeResultant() vector.Resultant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vector.Sum(s.vectorsLocked())
}

func (s *Session) ComputeVectorComponents(id int) (vector.Components, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.lookupLocked(id)
	if err != nil {
		return vector.Components{}, err
	}
	return vector.Analyze(*v), nil
}

// Components analyzes every vector in id order.
func (s *Session) Components() []vector.Components {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.componentsLocked()
}

func (s *Session) componentsLocked() []vector.Components {
	out := make([]vector.Components, 0, len(s.order))
	for _, v := range s.vectorsLocked() {
		out = append(out, vector.Analyze(v))
	}
	return out
}

func (s *Session) Verify() []vector.Verification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vector.Verify(s.vectorsLocked())
}

// Vectors returns copies of the current vectors in id order.
func (s *Session) Vectors() []vector.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vectorsLocked()
}

// SubmitPrediction scores p against the current resultant. The stored result
// is replaced wholesale.
func (s *Session) SubmitPrediction(p prediction.Prediction) (prediction.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return prediction.Result{}, ErrSessionClosed
	}
	res, err := prediction.Evaluate(p, s.resultant)
	if err != nil {
		return prediction.Result{}, err
	}
	s.prediction = &res
	s.view.PredictionTips = res.ShowTips
	s.touchLocked()

	s.publish(events.Event{Type: events.PredictionScored, Accuracy: string(res.Accuracy)})
	return res, nil
}

func (s *Session) ResetPrediction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetPredictionLocked()
}

func (s *Session) resetPredictionLocked() {
	s.prediction = nil
	s.view.PredictionTips = false
}

// Prediction returns the last scored prediction, if any.
func (s *Session) Prediction() (prediction.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prediction == nil {
		return prediction.Result{}, false
	}
	return *s.prediction, true
}

// StartChallenge puts the default vectors back, clears the prediction and
// starts challenge id with its intro showing.
func (s *Session) StartChallenge(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if err := s.engine.Start(id); err != nil {
		return err
	}
	s.resetPredictionLocked()
	s.loadDefaultsLocked()
	s.view.PredictionPanel = false
	s.view.Hint = false
	s.view.Intro = true
	s.view.Explanation = false
	s.view.RealWorld = false
	s.view.Success = false
	s.touchLocked()

	if _, err := s.engine.UpdateProgress(s.resultant); err != nil {
		log.Printf("[LAB] Session %s: progress after start: %v", s.Token, err)
	}
	log.Printf("[LAB] Session %s started challenge %d", s.Token, id)
	s.publish(events.Event{Type: events.ChallengeStarted, ChallengeID: id})
	return nil
}

// DismissIntro closes the intro card of the active challenge.
func (s *Session) DismissIntro() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.DismissIntro(); err != nil {
		return err
	}
	s.view.Intro = false
	s.touchLocked()
	return nil
}

// ResetChallenge leaves the active challenge. Completions are kept.
func (s *Session) ResetChallenge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Reset()
	s.view.PredictionPanel = true
	s.view.Hint = false
	s.view.Intro = false
	s.view.Explanation = false
	s.view.RealWorld = false
	s.touchLocked()
}

// UpdateChallengeProgress recomputes the active challenge's progress.
func (s *Session) UpdateChallengeProgress() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.UpdateProgress(s.resultant)
}

// CheckChallengeCompletion runs the completion check against the current resultant.
func (s *Session) CheckChallengeCompletion() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engine.Active(); !ok {
		return Outcome{}, challenge.ErrInvalidState
	}
	return s.onVectorChangedLocked(), nil
}

// ShowHint reveals the hint of the active challenge.
func (s *Session) ShowHint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, ok := s.engine.Active()
	if !ok {
		return "", challenge.ErrInvalidState
	}
	s.view.Hint = true
	s.touchLocked()
	return active.Hint, nil
}

// ToggleRealWorldExample flips the real-world panel of the active challenge.
func (s *Session) ToggleRealWorldExample() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engine.Active(); !ok {
		return false, challenge.ErrInvalidState
	}
	s.view.RealWorld = !s.view.RealWorld
	s.touchLocked()
	return s.view.RealWorld, nil
}

// ResetVectors puts the default vectors back and clears the prediction.
// A running challenge keeps running and sees the new resultant.
func (s *Session) ResetVectors() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadDefaultsLocked()
	s.resetPredictionLocked()
	s.touchLocked()
	return s.onVectorChangedLocked()
}

// Close stops the challenge timer. The session rejects changes afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.engine.Close()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// publish is fire-and-forget; a failed publish never fails the caller.
func (s *Session) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	ev.SessionToken = s.Token
	ev.At = s.clock.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("[LAB] Failed to publish %s for session %s: %v", ev.Type, s.Token, err)
	}
}

// StateView is the full serializable state of a session.
type StateView struct {
	Token       string               `json:"token"`
	Vectors     []vector.Vector      `json:"vectors"`
	RenderOrder []int                `json:"render_order"`
	Dragging    int                  `json:"dragging,omitempty"`
	Components  []vector.Components  `json:"components"`
	Resultant   vector.Resultant     `json:"resultant"`
	Prediction  *prediction.Result   `json:"prediction,omitempty"`
	Challenge   challenge.Status     `json:"challenge"`
	Active      *challenge.Challenge `json:"active_challenge,omitempty"`
	View        View                 `json:"view"`
}

func (s *Session) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view.Success && !s.clock.Now().Before(s.successUntil) {
		s.view.Success = false
	}

	st := StateView{
		Token:       s.Token,
		Vectors:     s.vectorsLocked(),
		RenderOrder: s.renderOrderLocked(),
		Dragging:    s.dragging,
		Components:  s.componentsLocked(),
		Resultant:   s.resultant,
		Challenge:   s.engine.Snapshot(),
		View:        s.view,
	}
	if s.prediction != nil {
		p := *s.prediction
		st.Prediction = &p
	}
	if active, ok := s.engine.Active(); ok {
		st.Active = &active
	}
	return st
}
