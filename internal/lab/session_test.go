package lab

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vectorlab/backend/internal/challenge"
	"github.com/vectorlab/backend/internal/events"
	"github.com/vectorlab/backend/internal/prediction"
	"github.com/vectorlab/backend/internal/vector"
)

type stepScheduler struct {
	mu  sync.Mutex
	fns []*stepTimer
}

type stepTimer struct {
	fn   func()
	live bool
}

func (s *stepScheduler) Every(_ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &stepTimer{fn: fn, live: true}
	s.fns = append(s.fns, t)
	return func() {
		s.mu.Lock()
		t.live = false
		s.mu.Unlock()
	}
}

func (s *stepScheduler) Step() {
	s.mu.Lock()
	var fire []func()
	for _, t := range s.fns {
		if t.live {
			fire = append(fire, t.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	s     *Session
	sched *stepScheduler
	clock *testClock
	pub   *recordingPublisher
}

func newFixture() fixture {
	sched := &stepScheduler{}
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	engine := challenge.NewDefaultEngine(challenge.WithScheduler(sched), challenge.WithClock(clock))
	s := NewSession("tok", WithEngine(engine), WithSessionClock(clock), WithPublisher(pub))
	return fixture{s: s, sched: sched, clock: clock, pub: pub}
}

// zeroHeads places every head so the four vectors cancel out.
func zeroHeads(t *testing.T, s *Session) {
	t.Helper()
	center := vector.NewPoint(350, 200)
	heads := []vector.Point{{X: 450, Y: 200}, {X: 250, Y: 200}, {X: 350, Y: 100}, {X: 350, Y: 300}}
	for i, h := range heads {
		_, err := s.UpdateVectorEndpoint(i+1, h, false)
		require.NoError(t, err)
	}
	for _, v := range s.Vectors() {
		require.Equal(t, center, v.Start)
	}
}

func TestNewSessionDefaults(t *testing.T) {
	f := newFixture()
	st := f.s.State()

	require.Len(t, st.Vectors, 4)
	require.Equal(t, []int{1, 2, 3, 4}, st.RenderOrder)
	require.InDelta(t, -34, st.Resultant.X, 1e-9)
	require.InDelta(t, 47, st.Resultant.Y, 1e-9)
	require.Equal(t, challenge.PhaseInactive, st.Challenge.Phase)
	require.True(t, st.View.PredictionPanel)
	require.Nil(t, st.Prediction)
	require.Nil(t, st.Active)
}

func TestCanvasSizeMovesDefaults(t *testing.T) {
	s := NewSession("c", WithCanvas(1000, 600), WithEngine(challenge.NewDefaultEngine(challenge.WithScheduler(&stepScheduler{}))))
	v := s.Vectors()[0]
	require.Equal(t, vector.Point{X: 500, Y: 300}, v.Start)
	require.Equal(t, vector.Point{X: 692, Y: 134}, v.End)
}

func TestHeadDrag(t *testing.T) {
	f := newFixture()
	out, err := f.s.UpdateVectorEndpoint(1, vector.Point{X: 450, Y: 200}, false)
	require.NoError(t, err)

	v := f.s.Vectors()[0]
	require.Equal(t, vector.Point{X: 350, Y: 200}, v.Start)
	require.Equal(t, vector.Point{X: 450, Y: 200}, v.End)
	// Vector 1 went from (192,166) to (100,0).
	require.InDelta(t, -34-92, out.Resultant.X, 1e-9)
	require.InDelta(t, 47-166, out.Resultant.Y, 1e-9)
	require.Equal(t, out.Resultant, f.s.ComputeResultant())
}

func TestTailDragKeepsComponents(t *testing.T) {
	f := newFixture()
	before, err := f.s.ComputeVectorComponents(2)
	require.NoError(t, err)
	r0 := f.s.ComputeResultant()

	_, err = f.s.UpdateVectorEndpoint(2, vector.Point{X: 100, Y: 50}, true)
	require.NoError(t, err)

	after, err := f.s.ComputeVectorComponents(2)
	require.NoError(t, err)
	require.Equal(t, before.DX, after.DX)
	require.Equal(t, before.DY, after.DY)
	require.Equal(t, vector.Point{X: 100, Y: 50}, f.s.Vectors()[1].Start)
	require.Equal(t, r0, f.s.ComputeResultant())
}

func TestUnknownVector(t *testing.T) {
	f := newFixture()
	_, err := f.s.UpdateVectorEndpoint(9, vector.Point{}, false)
	require.ErrorIs(t, err, ErrVectorNotFound)
	require.ErrorIs(t, f.s.BeginDrag(0), ErrVectorNotFound)
	_, err = f.s.ToggleAngleReference(5)
	require.ErrorIs(t, err, ErrVectorNotFound)
	_, err = f.s.DragAngleLabel(-1, vector.Point{})
	require.ErrorIs(t, err, ErrVectorNotFound)
	_, err = f.s.ComputeVectorComponents(42)
	require.ErrorIs(t, err, ErrVectorNotFound)
}

func TestNonFiniteDragIsSanitized(t *testing.T) {
	f := newFixture()
	_, err := f.s.UpdateVectorEndpoint(1, vector.Point{X: math.NaN(), Y: math.Inf(1)}, false)
	require.NoError(t, err)
	r := f.s.ComputeResultant()
	require.False(t, math.IsNaN(r.Magnitude))
	require.Equal(t, vector.Point{X: 0, Y: 0}, f.s.Vectors()[0].End)
}

func TestRenderOrderPutsDraggedLast(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.s.BeginDrag(2))
	require.Equal(t, 2, f.s.Dragging())
	require.Equal(t, []int{1, 3, 4, 2}, f.s.RenderOrder())

	f.s.EndDrag()
	require.Equal(t, []int{1, 2, 3, 4}, f.s.RenderOrder())
}

func TestDragAngleLabelClamps(t *testing.T) {
	f := newFixture()
	d, err := f.s.DragAngleLabel(1, vector.Point{X: 350 + 40, Y: 200})
	require.NoError(t, err)
	require.InDelta(t, 2.0, d, 1e-9)

	d, err = f.s.DragAngleLabel(1, vector.Point{X: 351, Y: 200})
	require.NoError(t, err)
	require.Equal(t, vector.MinLabelDistance, d)

	d, err = f.s.DragAngleLabel(1, vector.Point{X: 350, Y: 900})
	require.NoError(t, err)
	require.Equal(t, vector.MaxLabelDistance, d)
	require.Equal(t, vector.MaxLabelDistance, f.s.Vectors()[0].LabelDistance)
}

func TestToggleAngleReference(t *testing.T) {
	f := newFixture()
	ref, err := f.s.ToggleAngleReference(1)
	require.NoError(t, err)
	require.Equal(t, vector.ReferenceY, ref)

	c, err := f.s.ComputeVectorComponents(1)
	require.NoError(t, err)
	require.Equal(t, vector.ReferenceY, c.Reference)

	ref, err = f.s.ToggleAngleReference(1)
	require.NoError(t, err)
	require.Equal(t, vector.ReferenceX, ref)
}

func TestVerifyDefaults(t *testing.T) {
	f := newFixture()
	for _, v := range f.s.Verify() {
		require.True(t, v.IsAccurate, "vector %d", v.VectorID)
	}
	require.Len(t, f.s.Components(), 4)
}

func TestSubmitPrediction(t *testing.T) {
	f := newFixture()
	res, err := f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionSE, Magnitude: prediction.Range50To100})
	require.NoError(t, err)
	require.Equal(t, prediction.AccuracyHigh, res.Accuracy)

	got, ok := f.s.Prediction()
	require.True(t, ok)
	require.Equal(t, res, got)
	require.Equal(t, []events.Type{events.PredictionScored}, f.pub.Types())

	res, err = f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionNW, Magnitude: prediction.RangeOver150})
	require.NoError(t, err)
	require.Equal(t, prediction.AccuracyLow, res.Accuracy)
	require.True(t, f.s.State().View.PredictionTips)

	_, err = f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionNE})
	require.ErrorIs(t, err, prediction.ErrInvalidPrediction)
	got, _ = f.s.Prediction()
	require.Equal(t, prediction.AccuracyLow, got.Accuracy)

	f.s.ResetPrediction()
	_, ok = f.s.Prediction()
	require.False(t, ok)
	require.False(t, f.s.State().View.PredictionTips)
}

func TestStartChallengeResetsLab(t *testing.T) {
	f := newFixture()
	_, err := f.s.UpdateVectorEndpoint(1, vector.Point{X: 10, Y: 10}, false)
	require.NoError(t, err)
	_, err = f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionSE, Magnitude: prediction.Range50To100})
	require.NoError(t, err)

	require.NoError(t, f.s.StartChallenge(3))
	st := f.s.State()
	require.Equal(t, vector.DefaultSet()[0].End, st.Vectors[0].End)
	require.Nil(t, st.Prediction)
	require.True(t, st.View.Intro)
	require.False(t, st.View.Hint)
	require.False(t, st.View.PredictionPanel)
	require.Equal(t, challenge.PhaseIntroduced, st.Challenge.Phase)
	require.NotNil(t, st.Active)
	require.Equal(t, 3, st.Active.ID)
	// 58 N of 150 N.
	require.Equal(t, 39, st.Challenge.Progress[3])

	require.ErrorIs(t, f.s.StartChallenge(77), challenge.ErrUnknownChallenge)
	require.Equal(t, 3, f.s.State().Active.ID)
}

func TestChallengeFlow(t *testing.T) {
	f := newFixture()
	var ticks []int
	f.s.OnTick(func(_, elapsed int) { ticks = append(ticks, elapsed) })

	require.NoError(t, f.s.StartChallenge(1))
	require.NoError(t, f.s.DismissIntro())
	require.False(t, f.s.State().View.Intro)

	hint, err := f.s.ShowHint()
	require.NoError(t, err)
	require.NotEmpty(t, hint)
	shown, err := f.s.ToggleRealWorldExample()
	require.NoError(t, err)
	require.True(t, shown)

	f.sched.Step()
	f.sched.Step()
	f.clock.Add(7 * time.Second)
	require.Equal(t, []int{1, 2}, ticks)

	zeroHeads(t, f.s)
	st := f.s.State()
	require.Equal(t, challenge.PhaseCompleted, st.Challenge.Phase)
	require.Equal(t, 1, st.Challenge.CompletedCount)
	require.Equal(t, 7, st.Challenge.CompletionSeconds[1])
	require.Equal(t, 100, st.Challenge.Progress[1])
	require.True(t, st.View.Success)
	require.True(t, st.View.Explanation)

	// Timer is stopped after completion.
	f.sched.Step()
	require.Equal(t, []int{1, 2}, ticks)

	// Moving again keeps the goal met but never completes twice.
	out, err := f.s.UpdateVectorEndpoint(1, vector.Point{X: 450, Y: 200}, false)
	require.NoError(t, err)
	require.False(t, out.Completed)
	require.Equal(t, 1, f.s.State().Challenge.CompletedCount)

	require.Equal(t,
		[]events.Type{events.ChallengeStarted, events.ChallengeCompleted},
		f.pub.Types())

	// The banner hides itself.
	f.clock.Add(SuccessBannerDuration)
	require.False(t, f.s.State().View.Success)

	f.s.ResetChallenge()
	st = f.s.State()
	require.Equal(t, challenge.PhaseInactive, st.Challenge.Phase)
	require.True(t, st.Challenge.Challenges[0].Completed)
	require.True(t, st.View.PredictionPanel)
	require.False(t, st.View.Explanation)
	require.False(t, st.View.RealWorld)
}

func TestChallengeOpsWithoutActive(t *testing.T) {
	f := newFixture()
	require.ErrorIs(t, f.s.DismissIntro(), challenge.ErrInvalidState)
	_, err := f.s.ShowHint()
	require.ErrorIs(t, err, challenge.ErrInvalidState)
	_, err = f.s.ToggleRealWorldExample()
	require.ErrorIs(t, err, challenge.ErrInvalidState)
	_, err = f.s.UpdateChallengeProgress()
	require.ErrorIs(t, err, challenge.ErrInvalidState)
	_, err = f.s.CheckChallengeCompletion()
	require.ErrorIs(t, err, challenge.ErrInvalidState)

	out, err := f.s.UpdateVectorEndpoint(1, vector.Point{X: 400, Y: 150}, false)
	require.NoError(t, err)
	require.False(t, out.Completed)
	require.Equal(t, 0, out.Progress)
}

func TestUpdateAndCheckChallenge(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.s.StartChallenge(3))
	p, err := f.s.UpdateChallengeProgress()
	require.NoError(t, err)
	require.Equal(t, 39, p)

	out, err := f.s.CheckChallengeCompletion()
	require.NoError(t, err)
	require.False(t, out.Completed)

	// Stretch vector 1 up and right to push the resultant past 150 N.
	out, err = f.s.UpdateVectorEndpoint(1, vector.Point{X: 700, Y: -200}, false)
	require.NoError(t, err)
	require.True(t, out.Completed)
	require.Equal(t, 100, out.Progress)
}

func TestResetVectorsClearsPrediction(t *testing.T) {
	f := newFixture()
	_, err := f.s.UpdateVectorEndpoint(4, vector.Point{X: 0, Y: 0}, true)
	require.NoError(t, err)
	_, err = f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionNotSure, Magnitude: prediction.RangeNotSure})
	require.NoError(t, err)
	require.NoError(t, f.s.BeginDrag(4))

	out := f.s.ResetVectors()
	require.InDelta(t, -34, out.Resultant.X, 1e-9)
	_, ok := f.s.Prediction()
	require.False(t, ok)
	require.Equal(t, 0, f.s.Dragging())
	require.Equal(t, vector.DefaultSet(), f.s.Vectors())
}

func TestClosedSessionRejectsChanges(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.s.StartChallenge(1))
	f.s.Close()
	f.s.Close()
	require.True(t, f.s.Closed())

	_, err := f.s.UpdateVectorEndpoint(1, vector.Point{}, false)
	require.ErrorIs(t, err, ErrSessionClosed)
	require.ErrorIs(t, f.s.StartChallenge(1), ErrSessionClosed)
	_, err = f.s.SubmitPrediction(prediction.Prediction{Direction: prediction.DirectionNE, Magnitude: prediction.RangeUnder50})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestLastActiveTracksEvents(t *testing.T) {
	f := newFixture()
	created := f.s.LastActive()
	f.clock.Add(time.Minute)
	require.NoError(t, f.s.BeginDrag(1))
	require.Equal(t, created.Add(time.Minute), f.s.LastActive())
}
