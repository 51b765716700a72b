package webclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

const (
	DefaultDelay         = 400 * time.Millisecond
	defaultCommitTimeout = 10 * time.Second
)

// VoteState is what a rendered prompt shows: the user's vote (votes.None when
// absent) and the two counters.
type VoteState struct {
	UserVote  int `json:"userVote"`
	UpVotes   int `json:"upVotes"`
	DownVotes int `json:"downVotes"`
}

// ApplyClick is the transition a click on value makes to s. It follows the
// same table the server applies to a vote request.
func ApplyClick(s VoteState, value int) VoteState {
	d := votes.Decide(s.UserVote, value)
	return VoteState{
		UserVote:  d.Next,
		UpVotes:   max(s.UpVotes+d.UpDelta, 0),
		DownVotes: max(s.DownVotes+d.DownDelta, 0),
	}
}

// Reconcile returns the value to submit so the server moves from confirmed
// to optimistic, and false when the two already agree.
//
// The server removes a vote when it receives the vote's own polarity again,
// so clearing a confirmed vote resubmits it.
func Reconcile(confirmed, optimistic VoteState) (int, bool) {
	switch {
	case optimistic.UserVote == confirmed.UserVote:
		return votes.None, false
	case optimistic.UserVote == votes.None:
		return confirmed.UserVote, true
	default:
		return optimistic.UserVote, true
	}
}

// Committer submits a vote to the server. *Client implements it.
type Committer interface {
	Vote(ctx context.Context, promptID string, value int) (*votes.Result, error)
}

// Session reports whether a user is signed in. *Client implements it.
type Session interface {
	Authenticated() bool
}

type ReconcilerConfig struct {
	PromptID  string
	Initial   VoteState
	Committer Committer
	Session   Session

	// Delay is the debounce window; DefaultDelay when zero.
	Delay time.Duration

	OnLoginRequired func()
	OnChange        func(VoteState)
	OnError         func(error)
}

// Reconciler applies clicks on one prompt optimistically and commits the
// net result once clicks stop for Delay. A failed commit rolls the display
// back to the last state the server confirmed.
//
// Commits are not queued: a commit already in flight when the next one
// fires is not waited for.
type Reconciler struct {
	cfg ReconcilerConfig

	mu         sync.Mutex
	confirmed  VoteState
	optimistic VoteState
	timer      *time.Timer
	gen        uint64
	closed     bool
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	return &Reconciler{
		cfg:        cfg,
		confirmed:  cfg.Initial,
		optimistic: cfg.Initial,
	}
}

// Click records a vote of value. Signed out users are sent to log in instead.
func (r *Reconciler) Click(value int) error {
	if !votes.ValidValue(value) {
		return fmt.Errorf("invalid vote value %d", value)
	}
	if r.cfg.Session != nil && !r.cfg.Session.Authenticated() {
		if r.cfg.OnLoginRequired != nil {
			r.cfg.OnLoginRequired()
		}
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.stopTimerLocked()
	r.optimistic = ApplyClick(r.optimistic, value)
	state := r.optimistic
	gen := r.gen
	r.timer = time.AfterFunc(r.cfg.Delay, func() { r.commit(gen) })
	r.mu.Unlock()

	r.changed(state)
	return nil
}

// Reset replaces both states with freshly fetched server data and drops any
// pending commit.
func (r *Reconciler) Reset(s VoteState) {
	r.mu.Lock()
	r.stopTimerLocked()
	r.confirmed = s
	r.optimistic = s
	r.mu.Unlock()

	r.changed(s)
}

// Close cancels a pending commit. A commit already in flight still completes.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimerLocked()
	r.closed = true
}

// State is what should be rendered now.
func (r *Reconciler) State() VoteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.optimistic
}

// Confirmed is the last state the server acknowledged.
func (r *Reconciler) Confirmed() VoteState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed
}

// stopTimerLocked invalidates the pending timer. Bumping gen covers a timer
// that already fired and is waiting on mu.
func (r *Reconciler) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
}

func (r *Reconciler) commit(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	sent := r.optimistic
	value, send := Reconcile(r.confirmed, sent)
	r.mu.Unlock()

	if !send {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultCommitTimeout)
	defer cancel()
	_, err := r.cfg.Committer.Vote(ctx, r.cfg.PromptID, value)

	r.mu.Lock()
	if err == nil {
		r.confirmed = sent
		r.mu.Unlock()
		return
	}
	r.stopTimerLocked()
	r.optimistic = r.confirmed
	state := r.optimistic
	r.mu.Unlock()

	r.changed(state)
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
}

func (r *Reconciler) changed(s VoteState) {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange(s)
	}
}
