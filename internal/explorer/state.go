package explorer

import (
	"errors"

	"github.com/v0xg/webexplore/internal/urlnorm"
)

// State is a phase of the exploration loop.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateExtracting
	StateDeciding
	StateActing
	StateSettling
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateExtracting:
		return "extracting"
	case StateDeciding:
		return "deciding"
	case StateActing:
		return "acting"
	case StateSettling:
		return "settling"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Termination reasons. Budget exhaustion and reaching the target are
// reported as successful sessions; the others are not.
var (
	ErrBudgetExhausted        = errors.New("click budget exhausted")
	ErrFailureBudgetExhausted = errors.New("too many consecutive failures")
	ErrStuck                  = errors.New("stuck")
	ErrTargetReached          = errors.New("target reached")
	ErrCancelled              = errors.New("cancelled")
	ErrActionFailed           = errors.New("action failed")
)

func successful(reason error) bool {
	return errors.Is(reason, ErrBudgetExhausted) || errors.Is(reason, ErrTargetReached)
}

// Ring is a fixed-capacity FIFO of interaction keys. Pushing onto a full
// ring evicts the oldest key.
type Ring struct {
	buf  []string
	head int // index of the oldest key
	size int
}

// NewRing creates a ring holding at most capacity keys. A capacity of zero
// or less holds nothing.
func NewRing(capacity int) *Ring {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring{buf: make([]string, capacity)}
}

// Push appends key, evicting the oldest when full.
func (r *Ring) Push(key string) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = key
		r.size++
		return
	}
	r.buf[r.head] = key
	r.head = (r.head + 1) % len(r.buf)
}

// List returns the keys oldest first.
func (r *Ring) List() []string {
	out := make([]string, r.size)
	for i := range out {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of stored keys.
func (r *Ring) Len() int {
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Progress is the mutable session state. Only the loop writes to it, between
// steps.
type Progress struct {
	Visited             *urlnorm.Set
	Recent              *Ring
	ConsecutiveFailures int
	TotalClicks         int
	Navigations         int
}

func newProgress(startURL string, historySize int) *Progress {
	return &Progress{
		Visited: urlnorm.NewSet(startURL),
		Recent:  NewRing(historySize),
	}
}

// succeed folds a successful action into the state and reports whether
// resultingURL was a page not seen before.
func (p *Progress) succeed(key, resultingURL string) bool {
	p.ConsecutiveFailures = 0
	p.Recent.Push(key)
	if resultingURL == "" {
		return false
	}
	if p.Visited.Add(resultingURL) {
		p.Navigations++
		return true
	}
	return false
}

func (p *Progress) fail() {
	p.ConsecutiveFailures++
}
