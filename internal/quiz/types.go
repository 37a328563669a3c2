package quiz

import (
	"strings"
	"time"
)

// Type is the closed set of quiz categories accepted by the service.
// Wire values are kept compatible with existing clients.
type Type string

const (
	TypeAptitude       Type = "intelligence"
	TypePreAssessment  Type = "initial"
	TypePostAssessment Type = "final"
	TypeUnit           Type = "unit"
)

func ParseType(s string) (Type, error) {
	t := Type(strings.TrimSpace(s))
	switch t {
	case TypeAptitude, TypePreAssessment, TypePostAssessment, TypeUnit:
		return t, nil
	case "":
		return "", InvalidInput("quizType", "quizType is required")
	default:
		return "", InvalidInput("quizType", "invalid quiz type: "+s)
	}
}

// UnitKind is the sub-kind of a unit quiz.
type UnitKind string

const (
	UnitKindPractice UnitKind = "small"
	UnitKindFull     UnitKind = "full"
	UnitKindRemedial UnitKind = "remedial"
)

func ParseUnitKind(s string) (UnitKind, error) {
	k := UnitKind(strings.TrimSpace(s))
	switch k {
	case UnitKindPractice, UnitKindFull, UnitKindRemedial:
		return k, nil
	case "":
		return "", InvalidInput("unitQuizKind", "unitQuizKind is required for unit quizzes")
	default:
		return "", InvalidInput("unitQuizKind", "invalid unit quiz kind: "+s)
	}
}

// Submission is one learner's answers for one quiz, built per request.
type Submission struct {
	Type      Type
	UnitKind  UnitKind
	UnitID    string
	LearnerID string
	Answers   map[string]string

	// CategoryScores and Total are supplied by the client for aptitude quizzes.
	CategoryScores map[string]float64
	Total          *float64
}

// Validate checks the submission shape. It never touches storage.
func (s Submission) Validate() error {
	if _, err := ParseType(string(s.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(s.LearnerID) == "" {
		return InvalidInput("user", "user is required")
	}
	if s.Type == TypeUnit {
		if strings.TrimSpace(s.UnitID) == "" {
			return InvalidInput("unitId", "unitId must be defined for unit quizzes")
		}
		if _, err := ParseUnitKind(string(s.UnitKind)); err != nil {
			return err
		}
	}
	if len(s.Answers) == 0 {
		return InvalidInput("answers", "answers must not be empty")
	}
	return nil
}

// Result is the immutable record of one accepted submission.
type Result struct {
	ID        string
	LearnerID string
	Type      Type
	UnitID    string
	UnitKind  UnitKind
	Answers   map[string]string

	// Scores holds the aptitude category scores; nil for knowledge quizzes.
	Scores map[string]float64
	// Score is the raw correct count, or the aptitude total.
	Score float64
	// Percentage is set for knowledge quizzes only.
	Percentage     *int
	TotalQuestions int
	Passed         bool
	Completed      bool
	CreatedAt      time.Time
}

// AdvancesUnit reports whether this result may mark its unit completed.
func (r Result) AdvancesUnit() bool {
	return r.Type == TypeUnit && r.UnitKind == UnitKindFull && r.Passed
}
