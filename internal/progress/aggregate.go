package progress

import (
	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// Delta describes what an accepted result changed.
type Delta struct {
	AptitudeSet  bool
	AssignedPath string
	ScoreSet     bool
	UnitAdded    bool
	// UnitCapped is true when a passed unit was not added because the
	// completed-unit set is already at the configured maximum.
	UnitCapped          bool
	CompletedUnitsCount int
}

// Aggregator applies accepted results to a learner's progress.
type Aggregator struct {
	// MaxUnits caps the completed-unit set; 0 means unlimited.
	MaxUnits int
}

// Apply checks the gate against p and, if accepted, mutates p in place.
// assignedPath is only used for aptitude results. Because the gate runs on
// the same value that is mutated, callers that hold p inside a store
// transaction get check and write as one atomic step.
func (a Aggregator) Apply(p *Progress, r quiz.Result, assignedPath string) (Delta, error) {
	if err := Check(*p, r.Type, r.UnitKind, r.UnitID); err != nil {
		return Delta{}, err
	}

	var d Delta
	switch r.Type {
	case quiz.TypeAptitude:
		scores := make(map[string]float64, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		p.AptitudeScores = scores
		p.AssignedPath = assignedPath
		d.AptitudeSet = true
		d.AssignedPath = assignedPath

	case quiz.TypePreAssessment, quiz.TypePostAssessment:
		if r.Percentage == nil {
			return Delta{}, quiz.InvalidInput("score", "assessment result has no percentage")
		}
		v := *r.Percentage
		if r.Type == quiz.TypePreAssessment {
			p.PreAssessment = &v
		} else {
			p.PostAssessment = &v
		}
		d.ScoreSet = true

	case quiz.TypeUnit:
		if r.AdvancesUnit() {
			d.UnitAdded, d.UnitCapped = a.addUnit(p, r.UnitID)
		}
	}

	d.CompletedUnitsCount = p.CompletedUnitsCount()
	return d, nil
}

func (a Aggregator) addUnit(p *Progress, unitID string) (added, capped bool) {
	if p.HasCompletedUnit(unitID) {
		return false, false
	}
	if a.MaxUnits > 0 && len(p.completedUnits) >= a.MaxUnits {
		return false, true
	}
	p.completedUnits = append(p.completedUnits, unitID)
	return true, false
}
