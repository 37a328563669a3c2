package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

func intp(v int) *int { return &v }

func TestCheck(t *testing.T) {
	fresh := Progress{LearnerID: "u1"}
	done := Restore(Progress{
		LearnerID:      "u1",
		AptitudeScores: map[string]float64{},
		PreAssessment:  intp(0),
		PostAssessment: intp(90),
	}, []string{"unit-1"})

	tests := []struct {
		name   string
		p      Progress
		typ    quiz.Type
		kind   quiz.UnitKind
		unit   string
		reject bool
	}{
		{"aptitude first time", fresh, quiz.TypeAptitude, "", "", false},
		{"aptitude again (empty mapping still counts)", done, quiz.TypeAptitude, "", "", true},
		{"pre first time", fresh, quiz.TypePreAssessment, "", "", false},
		{"pre again with zero score", done, quiz.TypePreAssessment, "", "", true},
		{"post again", done, quiz.TypePostAssessment, "", "", true},
		{"full on new unit", done, quiz.TypeUnit, quiz.UnitKindFull, "unit-2", false},
		{"full on completed unit", done, quiz.TypeUnit, quiz.UnitKindFull, "unit-1", true},
		{"practice on completed unit", done, quiz.TypeUnit, quiz.UnitKindPractice, "unit-1", false},
		{"remedial on completed unit", done, quiz.TypeUnit, quiz.UnitKindRemedial, "unit-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.p, tt.typ, tt.kind, tt.unit)
			if !tt.reject {
				assert.NoError(t, err)
				return
			}
			assert.True(t, quiz.IsKind(err, quiz.KindAlreadyCompleted), "got %v", err)
		})
	}
}

func TestCheck_RejectionNamesUnit(t *testing.T) {
	p := Restore(Progress{}, []string{"unit-7"})
	err := Check(p, quiz.TypeUnit, quiz.UnitKindFull, "unit-7")
	assert.ErrorContains(t, err, "unit-7")
}

func TestCheck_UnknownType(t *testing.T) {
	err := Check(Progress{}, "midterm", "", "")
	assert.True(t, quiz.IsKind(err, quiz.KindInvalidInput))
}
