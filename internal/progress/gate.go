package progress

import "github.com/mind-engage/mindengage-progress/internal/quiz"

// Check decides whether a submission may be accepted given the learner's
// current progress. It returns nil to accept or an AlreadyCompleted error.
func Check(p Progress, typ quiz.Type, kind quiz.UnitKind, unitID string) error {
	switch typ {
	case quiz.TypeAptitude:
		if p.Completed(typ) {
			return quiz.AlreadyCompleted("intelligence quiz already completed")
		}
	case quiz.TypePreAssessment:
		if p.Completed(typ) {
			return quiz.AlreadyCompleted("initial quiz already completed")
		}
	case quiz.TypePostAssessment:
		if p.Completed(typ) {
			return quiz.AlreadyCompleted("final quiz already completed")
		}
	case quiz.TypeUnit:
		if kind == quiz.UnitKindFull && p.HasCompletedUnit(unitID) {
			return quiz.AlreadyCompleted("unit " + unitID + " already completed")
		}
	default:
		return quiz.InvalidInput("quizType", "invalid quiz type: "+string(typ))
	}
	return nil
}
