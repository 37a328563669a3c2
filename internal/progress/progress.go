// Package progress keeps each learner's cumulative completion state: the
// write-once aptitude, pre- and post-assessment results, the assigned path,
// and the set of completed units. The completed-unit count is always derived
// from the set and is never stored or changed on its own.
package progress

import (
	"time"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

type Progress struct {
	LearnerID string

	// AptitudeScores is nil until the aptitude quiz is accepted.
	AptitudeScores map[string]float64
	AssignedPath   string

	// PreAssessment and PostAssessment are percentages; nil means not taken.
	// A zero percentage is a real score.
	PreAssessment  *int
	PostAssessment *int

	completedUnits []string

	Version   int64
	UpdatedAt time.Time
}

// Restore rebuilds a Progress from stored fields, dropping duplicate units.
func Restore(p Progress, completedUnits []string) Progress {
	p.completedUnits = nil
	for _, u := range completedUnits {
		if u != "" && !p.HasCompletedUnit(u) {
			p.completedUnits = append(p.completedUnits, u)
		}
	}
	return p
}

// CompletedUnits returns the completed unit ids in completion order.
func (p Progress) CompletedUnits() []string {
	out := make([]string, len(p.completedUnits))
	copy(out, p.completedUnits)
	return out
}

func (p Progress) CompletedUnitsCount() int { return len(p.completedUnits) }

func (p Progress) HasCompletedUnit(unitID string) bool {
	for _, u := range p.completedUnits {
		if u == unitID {
			return true
		}
	}
	return false
}

// Completed reports whether the write-once result for typ is set.
// Unit quizzes are repeatable and never count as completed here.
func (p Progress) Completed(typ quiz.Type) bool {
	switch typ {
	case quiz.TypeAptitude:
		return p.AptitudeScores != nil
	case quiz.TypePreAssessment:
		return p.PreAssessment != nil
	case quiz.TypePostAssessment:
		return p.PostAssessment != nil
	default:
		return false
	}
}

func (p Progress) clone() Progress {
	out := p
	if p.AptitudeScores != nil {
		out.AptitudeScores = make(map[string]float64, len(p.AptitudeScores))
		for k, v := range p.AptitudeScores {
			out.AptitudeScores[k] = v
		}
	}
	if p.PreAssessment != nil {
		v := *p.PreAssessment
		out.PreAssessment = &v
	}
	if p.PostAssessment != nil {
		v := *p.PostAssessment
		out.PostAssessment = &v
	}
	out.completedUnits = p.CompletedUnits()
	return out
}
