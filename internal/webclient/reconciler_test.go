package webclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

const testDelay = 30 * time.Millisecond

type fakeCommitter struct {
	mu    sync.Mutex
	calls []int
	err   error
	sent  chan int
}

func newFakeCommitter(err error) *fakeCommitter {
	return &fakeCommitter{err: err, sent: make(chan int, 16)}
}

func (f *fakeCommitter) Vote(_ context.Context, _ string, value int) (*votes.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, value)
	f.mu.Unlock()
	f.sent <- value
	if f.err != nil {
		return nil, f.err
	}
	return &votes.Result{}, nil
}

func (f *fakeCommitter) Calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

type session bool

func (s session) Authenticated() bool { return bool(s) }

func waitSent(t *testing.T, f *fakeCommitter) int {
	t.Helper()
	select {
	case v := <-f.sent:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no commit was sent")
		return 0
	}
}

func assertNothingSent(t *testing.T, f *fakeCommitter) {
	t.Helper()
	time.Sleep(5 * testDelay)
	assert.Empty(t, f.Calls())
}

func TestApplyClick(t *testing.T) {
	tests := []struct {
		name  string
		state VoteState
		value int
		want  VoteState
	}{
		{"up from none", VoteState{votes.None, 4, 2}, votes.Up, VoteState{votes.Up, 5, 2}},
		{"down from none", VoteState{votes.None, 4, 2}, votes.Down, VoteState{votes.Down, 4, 3}},
		{"up again removes", VoteState{votes.Up, 5, 2}, votes.Up, VoteState{votes.None, 4, 2}},
		{"down again removes", VoteState{votes.Down, 4, 3}, votes.Down, VoteState{votes.None, 4, 2}},
		{"up to down", VoteState{votes.Up, 5, 2}, votes.Down, VoteState{votes.Down, 4, 3}},
		{"down to up", VoteState{votes.Down, 4, 3}, votes.Up, VoteState{votes.Up, 5, 2}},
		{"counters stay non-negative", VoteState{votes.Up, 0, 0}, votes.Up, VoteState{votes.None, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyClick(tt.state, tt.value))
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		confirmed  int
		optimistic int
		wantValue  int
		wantSend   bool
	}{
		{"nothing to do", votes.None, votes.None, votes.None, false},
		{"unchanged up", votes.Up, votes.Up, votes.None, false},
		{"new up", votes.None, votes.Up, votes.Up, true},
		{"new down", votes.None, votes.Down, votes.Down, true},
		{"clear up resubmits up", votes.Up, votes.None, votes.Up, true},
		{"clear down resubmits down", votes.Down, votes.None, votes.Down, true},
		{"flip up to down", votes.Up, votes.Down, votes.Down, true},
		{"flip down to up", votes.Down, votes.Up, votes.Up, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, send := Reconcile(VoteState{UserVote: tt.confirmed}, VoteState{UserVote: tt.optimistic})
			assert.Equal(t, tt.wantSend, send)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

// The server must end up where the display is after any click sequence.
func TestReconcile_AgreesWithServerTable(t *testing.T) {
	for _, confirmed := range []int{votes.None, votes.Up, votes.Down} {
		for _, optimistic := range []int{votes.None, votes.Up, votes.Down} {
			value, send := Reconcile(VoteState{UserVote: confirmed}, VoteState{UserVote: optimistic})
			if !send {
				assert.Equal(t, confirmed, optimistic)
				continue
			}
			assert.Equal(t, optimistic, votes.Decide(confirmed, value).Next, "confirmed=%d optimistic=%d", confirmed, optimistic)
		}
	}
}

func TestReconciler_BurstSendsOneNetCommit(t *testing.T) {
	committer := newFakeCommitter(nil)
	var (
		mu       sync.Mutex
		rendered []VoteState
	)
	r := NewReconciler(ReconcilerConfig{
		PromptID:  "p1",
		Initial:   VoteState{UserVote: votes.None, UpVotes: 4},
		Committer: committer,
		Session:   session(true),
		Delay:     testDelay,
		OnChange: func(s VoteState) {
			mu.Lock()
			rendered = append(rendered, s)
			mu.Unlock()
		},
	})
	defer r.Close()

	require.NoError(t, r.Click(votes.Up))
	require.NoError(t, r.Click(votes.Down))
	require.NoError(t, r.Click(votes.Up))

	assert.Equal(t, votes.Up, waitSent(t, committer))
	time.Sleep(5 * testDelay)
	assert.Equal(t, []int{votes.Up}, committer.Calls())

	want := VoteState{UserVote: votes.Up, UpVotes: 5}
	assert.Eventually(t, func() bool { return r.Confirmed() == want }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, r.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []VoteState{
		{UserVote: votes.Up, UpVotes: 5},
		{UserVote: votes.Down, UpVotes: 4, DownVotes: 1},
		{UserVote: votes.Up, UpVotes: 5},
	}, rendered)
}

func TestReconciler_RollbackOnFailure(t *testing.T) {
	committer := newFakeCommitter(errors.New("network down"))
	failed := make(chan error, 1)
	r := NewReconciler(ReconcilerConfig{
		PromptID:  "p1",
		Initial:   VoteState{UserVote: votes.None, UpVotes: 4},
		Committer: committer,
		Session:   session(true),
		Delay:     testDelay,
		OnError:   func(err error) { failed <- err },
	})
	defer r.Close()

	require.NoError(t, r.Click(votes.Up))
	assert.Equal(t, VoteState{UserVote: votes.Up, UpVotes: 5}, r.State())

	assert.Equal(t, votes.Up, waitSent(t, committer))
	select {
	case err := <-failed:
		assert.EqualError(t, err, "network down")
	case <-time.After(2 * time.Second):
		t.Fatal("error was not reported")
	}

	baseline := VoteState{UserVote: votes.None, UpVotes: 4}
	assert.Equal(t, baseline, r.State())
	assert.Equal(t, baseline, r.Confirmed())
}

func TestReconciler_RequiresLogin(t *testing.T) {
	committer := newFakeCommitter(nil)
	loginRequired := 0
	r := NewReconciler(ReconcilerConfig{
		PromptID:        "p1",
		Initial:         VoteState{UpVotes: 2},
		Committer:       committer,
		Session:         session(false),
		Delay:           testDelay,
		OnLoginRequired: func() { loginRequired++ },
		OnChange:        func(VoteState) { t.Error("state changed while signed out") },
	})
	defer r.Close()

	require.NoError(t, r.Click(votes.Up))

	assert.Equal(t, 1, loginRequired)
	assert.Equal(t, VoteState{UpVotes: 2}, r.State())
	assertNothingSent(t, committer)
}

func TestReconciler_SkipsWhenNetResultIsConfirmed(t *testing.T) {
	tests := []struct {
		name    string
		initial VoteState
	}{
		{"no vote", VoteState{UserVote: votes.None, UpVotes: 3}},
		{"existing up", VoteState{UserVote: votes.Up, UpVotes: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			committer := newFakeCommitter(nil)
			r := NewReconciler(ReconcilerConfig{
				PromptID:  "p1",
				Initial:   tt.initial,
				Committer: committer,
				Session:   session(true),
				Delay:     testDelay,
			})
			defer r.Close()

			require.NoError(t, r.Click(votes.Up))
			require.NoError(t, r.Click(votes.Up))

			assertNothingSent(t, committer)
			assert.Equal(t, tt.initial, r.State())
		})
	}
}

func TestReconciler_ClearingConfirmedVoteResubmitsIt(t *testing.T) {
	committer := newFakeCommitter(nil)
	r := NewReconciler(ReconcilerConfig{
		PromptID:  "p1",
		Initial:   VoteState{UserVote: votes.Down, UpVotes: 1, DownVotes: 2},
		Committer: committer,
		Session:   session(true),
		Delay:     testDelay,
	})
	defer r.Close()

	require.NoError(t, r.Click(votes.Down))
	assert.Equal(t, VoteState{UserVote: votes.None, UpVotes: 1, DownVotes: 1}, r.State())
	assert.Equal(t, votes.Down, waitSent(t, committer))

	cleared := VoteState{UserVote: votes.None, UpVotes: 1, DownVotes: 1}
	require.Eventually(t, func() bool { return r.Confirmed() == cleared }, time.Second, 5*time.Millisecond)

	// The next click is reconciled against the new baseline.
	require.NoError(t, r.Click(votes.Up))
	assert.Equal(t, votes.Up, waitSent(t, committer))
}

func TestReconciler_CloseCancelsPendingCommit(t *testing.T) {
	committer := newFakeCommitter(nil)
	r := NewReconciler(ReconcilerConfig{
		PromptID:  "p1",
		Committer: committer,
		Session:   session(true),
		Delay:     testDelay,
	})

	require.NoError(t, r.Click(votes.Up))
	r.Close()
	require.NoError(t, r.Click(votes.Down))

	assertNothingSent(t, committer)
	assert.Equal(t, VoteState{UserVote: votes.Up, UpVotes: 1}, r.State())
}

func TestReconciler_ResetDropsPendingCommit(t *testing.T) {
	committer := newFakeCommitter(nil)
	r := NewReconciler(ReconcilerConfig{
		PromptID:  "p1",
		Committer: committer,
		Session:   session(true),
		Delay:     testDelay,
	})
	defer r.Close()

	require.NoError(t, r.Click(votes.Up))
	fresh := VoteState{UserVote: votes.Down, UpVotes: 7, DownVotes: 3}
	r.Reset(fresh)

	assertNothingSent(t, committer)
	assert.Equal(t, fresh, r.State())
	assert.Equal(t, fresh, r.Confirmed())
}

func TestReconciler_RejectsInvalidValue(t *testing.T) {
	r := NewReconciler(ReconcilerConfig{PromptID: "p1", Committer: newFakeCommitter(nil), Session: session(true)})
	defer r.Close()

	assert.Error(t, r.Click(0))
	assert.Error(t, r.Click(2))
	assert.Equal(t, VoteState{}, r.State())
}
