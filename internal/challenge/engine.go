// Package challenge tracks goal-driven exercises over the resultant: which
// challenge is active, how close the learner is, when it was solved, and the
// once-per-second clock that runs while they work on it.
package challenge

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/vectorlab/backend/internal/vector"
)

// Phase is the lifecycle state of the active challenge.
type Phase string

const (
	PhaseInactive   Phase = "INACTIVE"
	PhaseIntroduced Phase = "INTRODUCED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseCompleted  Phase = "COMPLETED"
)

var (
	ErrInvalidState       = errors.New("no active challenge")
	ErrUnknownChallenge   = errors.New("challenge not found")
	ErrDuplicateChallenge = errors.New("challenge already registered")
	ErrEngineClosed       = errors.New("challenge engine closed")
)

// DefaultTickInterval is how often the elapsed-seconds counter advances.
const DefaultTickInterval = time.Second

// TickFunc is called after each timer tick with the running challenge and its
// elapsed seconds. It runs outside the engine lock.
type TickFunc func(challengeID, elapsed int)

// Engine holds the challenge catalog and the state of the single active challenge.
type Engine struct {
	challenges map[int]*Challenge
	order      []int

	active         int
	phase          Phase
	progress       map[int]int
	completionSecs map[int]int
	completedCount int
	startedAt      time.Time
	elapsed        int

	clock    Clock
	sched    Scheduler
	interval time.Duration
	cancel   func()
	gen      uint64
	onTick   TickFunc
	closed   bool

	mu sync.Mutex
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// NewEngine creates an engine with no challenges registered.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		challenges:     make(map[int]*Challenge),
		phase:          PhaseInactive,
		progress:       make(map[int]int),
		completionSecs: make(map[int]int),
		clock:          SystemClock,
		sched:          TickerScheduler{},
		interval:       DefaultTickInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultEngine creates an engine loaded with the built-in catalog.
func NewDefaultEngine(opts ...Option) *Engine {
	e := NewEngine(opts...)
	for _, ch := range Catalog() {
		if err := e.Register(ch); err != nil {
			log.Printf("[CHALLENGE] Failed to register challenge %d: %v", ch.ID, err)
		}
	}
	return e
}

// Register adds a challenge. A nil Progress scores 100 when the goal holds, 0 otherwise.
func (e *Engine) Register(ch Challenge) error {
	if ch.ID <= 0 {
		return fmt.Errorf("challenge id must be positive, got %d", ch.ID)
	}
	if ch.Goal == nil {
		return fmt.Errorf("challenge %d has no goal", ch.ID)
	}
	if ch.Progress == nil {
		goal := ch.Goal
		ch.Progress = func(r vector.Resultant) float64 {
			if goal(r) {
				return 100
			}
			return 0
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.challenges[ch.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateChallenge, ch.ID)
	}
	ch.Completed = false
	e.challenges[ch.ID] = &ch
	e.order = append(e.order, ch.ID)
	return nil
}

// OnTick installs the tick listener.
func (e *Engine) OnTick(fn TickFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// Start makes id the active challenge and restarts the clock. Any timer from a
// previous challenge is cancelled first.
func (e *Engine) Start(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if _, ok := e.challenges[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChallenge, id)
	}

	e.stopTimerLocked()
	e.active = id
	e.phase = PhaseIntroduced
	e.progress[id] = 0
	e.startedAt = e.clock.Now()
	e.elapsed = 0

	gen := e.gen
	e.cancel = e.sched.Every(e.interval, func() { e.tick(gen) })

	log.Printf("[CHALLENGE] Started challenge %d", id)
	return nil
}

// DismissIntro moves an introduced challenge into progress. It has no numeric effect.
func (e *Engine) DismissIntro() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == 0 {
		return ErrInvalidState
	}
	if e.phase == PhaseIntroduced {
		e.phase = PhaseInProgress
	}
	return nil
}

// UpdateProgress recomputes the active challenge's progress from r, rounded to a whole percent.
func (e *Engine) UpdateProgress(r vector.Resultant) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == 0 {
		return 0, ErrInvalidState
	}
	ch := e.challenges[e.active]
	p := int(math.Round(clamp(ch.Progress(r))))
	e.progress[e.active] = p
	return p, nil
}

// CheckCompletion reports whether this call completed the active challenge.
// A challenge completes at most once per session; later calls return false.
func (e *Engine) CheckCompletion(r vector.Resultant) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == 0 {
		return false, ErrInvalidState
	}
	ch := e.challenges[e.active]
	if ch.Completed || !ch.Goal(r) {
		return false, nil
	}

	ch.Completed = true
	e.phase = PhaseCompleted
	e.stopTimerLocked()
	secs := int(math.Round(e.clock.Now().Sub(e.startedAt).Seconds()))
	e.completionSecs[ch.ID] = secs
	e.completedCount++

	log.Printf("[CHALLENGE] Challenge %d completed in %ds (total completed=%d)", ch.ID, secs, e.completedCount)
	return true, nil
}

// Reset leaves the active challenge. Completion flags survive.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// ResetAll is the full application reset: it also forgets completions.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	for _, ch := range e.challenges {
		ch.Completed = false
	}
	e.completedCount = 0
	e.progress = make(map[int]int)
	e.completionSecs = make(map[int]int)
}

// Close stops the timer for good. Start fails afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.onTick = nil
	e.closed = true
}

func (e *Engine) resetLocked() {
	e.stopTimerLocked()
	e.active = 0
	e.phase = PhaseInactive
	e.elapsed = 0
	e.startedAt = time.Time{}
}

// stopTimerLocked cancels the live timer and bumps the generation so a tick
// already in flight is discarded.
func (e *Engine) stopTimerLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.cancel == nil {
		e.mu.Unlock()
		return
	}
	e.elapsed++
	id, elapsed, fn := e.active, e.elapsed, e.onTick
	e.mu.Unlock()

	if fn != nil {
		fn(id, elapsed)
	}
}

// Active returns a copy of the running challenge.
func (e *Engine) Active() (Challenge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == 0 {
		return Challenge{}, false
	}
	return *e.challenges[e.active], true
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Elapsed is the number of timer ticks since the active challenge started.
func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

func (e *Engine) CompletedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completedCount
}

func (e *Engine) Progress(id int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress[id]
}

// CompletionSeconds is the recorded solve time of challenge id.
func (e *Engine) CompletionSeconds(id int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.completionSecs[id]
	return s, ok
}

// Challenges returns copies of every registered challenge in registration order.
func (e *Engine) Challenges() []Challenge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.challengesLocked()
}

func (e *Engine) challengesLocked() []Challenge {
	out := make([]Challenge, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.challenges[id])
	}
	return out
}

// Status is the serializable view of the engine.
type Status struct {
	ActiveID          int         `json:"active_id,omitempty"`
	Phase             Phase       `json:"phase"`
	Progress          map[int]int `json:"progress"`
	Elapsed           int         `json:"elapsed"`
	ElapsedDisplay    string      `json:"elapsed_display"`
	CompletedCount    int         `json:"completed_count"`
	CompletionSeconds map[int]int `json:"completion_seconds"`
	Challenges        []Challenge `json:"challenges"`
}

func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	progress := make(map[int]int, len(e.progress))
	for k, v := range e.progress {
		progress[k] = v
	}
	secs := make(map[int]int, len(e.completionSecs))
	for k, v := range e.completionSecs {
		secs[k] = v
	}
	return Status{
		ActiveID:          e.active,
		Phase:             e.phase,
		Progress:          progress,
		Elapsed:           e.elapsed,
		ElapsedDisplay:    FormatElapsed(e.elapsed),
		CompletedCount:    e.completedCount,
		CompletionSeconds: secs,
		Challenges:        e.challengesLocked(),
	}
}

// FormatElapsed renders seconds as MM:SS.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
