package grading

import (
	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// Tally is the outcome of comparing a learner's answers to an answer key.
type Tally struct {
	Correct int
	// Total is the number of answered questions, not the size of the key.
	Total     int
	Breakdown map[string]bool
}

// Score counts exact matches between answers and key. Questions missing from
// the key count as wrong; extra key entries are ignored.
func Score(answers, key map[string]string) (Tally, error) {
	if len(answers) == 0 {
		return Tally{}, quiz.InvalidInput("answers", "cannot score a quiz with no answers")
	}
	t := Tally{Total: len(answers), Breakdown: make(map[string]bool, len(answers))}
	for qid, given := range answers {
		want, ok := key[qid]
		hit := ok && given == want
		t.Breakdown[qid] = hit
		if hit {
			t.Correct++
		}
	}
	return t, nil
}

// Percentage computes round(100*correct/total) with halves rounded up, in
// integer arithmetic so the result is exact.
func Percentage(correct, total int) (int, error) {
	if total <= 0 {
		return 0, quiz.InvalidInput("answers", "total questions must be positive")
	}
	if correct < 0 || correct > total {
		return 0, quiz.InvalidInput("answers", "correct count out of range")
	}
	return (200*correct + total) / (2 * total), nil
}
