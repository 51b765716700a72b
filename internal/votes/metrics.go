package votes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	votesAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptboard_votes_applied_total",
		Help: "Committed vote transitions by action",
	}, []string{"action"})

	voteApplyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptboard_vote_apply_failures_total",
		Help: "Vote transitions that did not commit, by error kind",
	}, []string{"kind"})

	voteApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promptboard_vote_apply_duration_seconds",
		Help:    "Duration of the vote transition transaction",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
)
