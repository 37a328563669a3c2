package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Quiz submissions by quiz type and outcome",
		},
		[]string{"quiz_type", "outcome"}, // outcome: accepted or an error kind
	)

	submissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_submission_duration_seconds",
			Help:    "Time spent processing a quiz submission",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"quiz_type"},
	)

	unitsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "units_completed_total",
			Help: "Units newly added to a learner's completed set",
		},
	)
)

// typeLabel keeps label cardinality bounded for malformed input.
func typeLabel(t quiz.Type) string {
	if _, err := quiz.ParseType(string(t)); err != nil {
		return "unknown"
	}
	return string(t)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	if k := quiz.KindOf(err); k != "" {
		return string(k)
	}
	return string(quiz.KindStorageFailure)
}
