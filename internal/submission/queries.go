package submission

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

// Completion answers "has this learner already done this quiz".
// Score is the aptitude mapping, the assessment percentage, or nil.
type Completion struct {
	Completed bool `json:"completed"`
	Score     any  `json:"score"`
}

// CheckCompletion reads progress only; quiz history is never consulted.
// For unit quizzes unitID is required and completion means the unit is in
// the completed set.
func (e *Engine) CheckCompletion(ctx context.Context, learnerID string, typ quiz.Type, unitID string) (Completion, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Completion{}, quiz.InvalidInput("user", "user is required")
	}
	typ, err := quiz.ParseType(string(typ))
	if err != nil {
		return Completion{}, err
	}
	if typ == quiz.TypeUnit && strings.TrimSpace(unitID) == "" {
		return Completion{}, quiz.InvalidInput("unitId", "unitId must be defined for unit quizzes")
	}
	p, err := e.progress.Get(ctx, learnerID)
	if err != nil {
		return Completion{}, err
	}

	switch typ {
	case quiz.TypeAptitude:
		if p.AptitudeScores != nil {
			return Completion{Completed: true, Score: p.AptitudeScores}, nil
		}
	case quiz.TypePreAssessment:
		if p.PreAssessment != nil {
			return Completion{Completed: true, Score: *p.PreAssessment}, nil
		}
	case quiz.TypePostAssessment:
		if p.PostAssessment != nil {
			return Completion{Completed: true, Score: *p.PostAssessment}, nil
		}
	case quiz.TypeUnit:
		return Completion{Completed: p.HasCompletedUnit(unitID)}, nil
	}
	return Completion{}, nil
}

// Progress returns the learner's current progress projection.
func (e *Engine) Progress(ctx context.Context, learnerID string) (progress.Progress, error) {
	if strings.TrimSpace(learnerID) == "" {
		return progress.Progress{}, quiz.InvalidInput("user", "user is required")
	}
	return e.progress.Get(ctx, learnerID)
}

type Profile struct {
	Learner  learner.Learner
	Progress progress.Progress
	// History is every accepted result, newest first.
	History []quiz.Result
}

// Profile loads the learner record, progress and result history together.
func (e *Engine) Profile(ctx context.Context, learnerID string) (Profile, error) {
	if e.learners == nil {
		return Profile{}, errNoLearners
	}
	var out Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Learner, err = e.learners.Get(gctx, learnerID)
		return err
	})
	g.Go(func() (err error) {
		out.Progress, err = e.progress.Get(gctx, learnerID)
		return err
	})
	g.Go(func() (err error) {
		out.History, err = e.results.ListByLearner(gctx, learnerID, "")
		if err != nil && quiz.KindOf(err) == "" {
			err = quiz.StorageFailure("list results", err)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return Profile{}, err
	}
	return out, nil
}
