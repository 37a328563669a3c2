package grading

import (
	"math"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// AptitudeTotal sums the category scores, or falls back to the client total
// when no categories were sent. A non-positive total with no categories is
// rejected as a malformed payload.
func AptitudeTotal(scores map[string]float64, total *float64) (float64, error) {
	for cat, v := range scores {
		if cat == "" {
			return 0, quiz.InvalidInput("scores", "category name must not be empty")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, quiz.InvalidInput("scores", "invalid score for category "+cat)
		}
	}

	var sum float64
	switch {
	case len(scores) > 0:
		for _, v := range scores {
			sum += v
		}
	case total != nil:
		if math.IsNaN(*total) || math.IsInf(*total, 0) {
			return 0, quiz.InvalidInput("score", "invalid total score")
		}
		sum = *total
	}

	if sum <= 0 && len(scores) == 0 {
		return 0, quiz.InvalidInput("scores", "invalid intelligence scores")
	}
	return sum, nil
}
