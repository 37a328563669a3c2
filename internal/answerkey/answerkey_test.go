package answerkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

func TestLoad_Testdata(t *testing.T) {
	k, err := Load("testdata/answer_key.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"linguistic", "logical", "interpersonal"}, k.Categories())
	assert.Equal(t, []string{"unit-1", "unit-2"}, k.Units())

	pre, ok := k.For(quiz.TypePreAssessment, "", "")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"q1": "a", "q2": "x", "q3": "c"}, pre)

	full, ok := k.For(quiz.TypeUnit, "unit-1", quiz.UnitKindFull)
	require.True(t, ok)
	assert.Len(t, full, 5)

	_, ok = k.For(quiz.TypeUnit, "unit-2", quiz.UnitKindRemedial)
	assert.False(t, ok, "unit-2 has no remedial key")

	_, ok = k.For(quiz.TypeUnit, "unit-9", quiz.UnitKindFull)
	assert.False(t, ok)

	_, ok = k.For(quiz.TypeAptitude, "", "")
	assert.False(t, ok, "aptitude quizzes are not key-scored")
}

func TestFor_ReturnsCopy(t *testing.T) {
	k, err := Parse([]byte(`{"initial":{"q1":"a"}}`))
	require.NoError(t, err)

	got, ok := k.For(quiz.TypePreAssessment, "", "")
	require.True(t, ok)
	got["q1"] = "tampered"

	again, _ := k.For(quiz.TypePreAssessment, "", "")
	assert.Equal(t, "a", again["q1"])

	cats := k.Categories()
	assert.Empty(t, cats)
}

func TestParse_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"unknown top-level section", `{"midterm":{"q1":"a"}}`},
		{"non-string answer", `{"initial":{"q1":1}}`},
		{"duplicate categories", `{"aptitude":{"categories":["logical","logical"]}}`},
		{"unknown unit kind", `{"units":{"unit-1":{"mega":{"q1":"a"}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.json")
	assert.Error(t, err)
}
