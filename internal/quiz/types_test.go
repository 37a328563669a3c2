package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionValidate(t *testing.T) {
	answers := map[string]string{"q1": "a"}

	tests := []struct {
		name      string
		sub       Submission
		wantField string
	}{
		{
			name: "valid aptitude",
			sub:  Submission{Type: TypeAptitude, LearnerID: "u1", Answers: answers},
		},
		{
			name: "valid full unit quiz",
			sub:  Submission{Type: TypeUnit, UnitID: "unit-1", UnitKind: UnitKindFull, LearnerID: "u1", Answers: answers},
		},
		{
			name:      "unknown type",
			sub:       Submission{Type: "midterm", LearnerID: "u1", Answers: answers},
			wantField: "quizType",
		},
		{
			name:      "missing type",
			sub:       Submission{LearnerID: "u1", Answers: answers},
			wantField: "quizType",
		},
		{
			name:      "missing learner",
			sub:       Submission{Type: TypePreAssessment, Answers: answers},
			wantField: "user",
		},
		{
			name:      "unit quiz without unit id",
			sub:       Submission{Type: TypeUnit, UnitKind: UnitKindFull, LearnerID: "u1", Answers: answers},
			wantField: "unitId",
		},
		{
			name:      "unit quiz with unknown kind",
			sub:       Submission{Type: TypeUnit, UnitID: "unit-1", UnitKind: "mega", LearnerID: "u1", Answers: answers},
			wantField: "unitQuizKind",
		},
		{
			name:      "empty answers",
			sub:       Submission{Type: TypePostAssessment, LearnerID: "u1", Answers: map[string]string{}},
			wantField: "answers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var qe *Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, KindInvalidInput, qe.Kind)
			assert.Equal(t, tt.wantField, qe.Field)
		})
	}
}


func TestResultAdvancesUnit(t *testing.T) {
	assert.True(t, Result{Type: TypeUnit, UnitKind: UnitKindFull, Passed: true}.AdvancesUnit())
	assert.False(t, Result{Type: TypeUnit, UnitKind: UnitKindFull, Passed: false}.AdvancesUnit())
	assert.False(t, Result{Type: TypeUnit, UnitKind: UnitKindPractice, Passed: true}.AdvancesUnit())
	assert.False(t, Result{Type: TypeUnit, UnitKind: UnitKindRemedial, Passed: true}.AdvancesUnit())
	assert.False(t, Result{Type: TypePreAssessment, Passed: true}.AdvancesUnit())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPartialFailure, KindOf(PartialFailure("r1", assert.AnError)))
	assert.ErrorIs(t, PartialFailure("r1", assert.AnError), assert.AnError)
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
	assert.False(t, IsKind(nil, KindNotFound))
}
