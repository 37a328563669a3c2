// Package submission accepts quiz submissions: it validates, gates, scores,
// records the result and folds it into the learner's progress.
package submission

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-progress/internal/answerkey"
	"github.com/mind-engage/mindengage-progress/internal/grading"
	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type EventAppender interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Deps are the collaborators of an Engine. Learners and Events are optional.
type Deps struct {
	Results  quiz.ResultStore
	Progress progress.Store
	Locker   progress.Locker
	Key      *answerkey.Key
	Learners learner.Store
	Events   EventAppender

	// MaxUnits caps the completed-unit set; 0 means unlimited.
	MaxUnits int
	// UnitPassPercent is the percentage at or above which a quiz passes.
	UnitPassPercent int
}

type Engine struct {
	results     quiz.ResultStore
	progress    progress.Store
	locker      progress.Locker
	key         *answerkey.Key
	learners    learner.Store
	events      EventAppender
	agg         progress.Aggregator
	passPercent int

	now   func() time.Time
	newID func() string
}

func NewEngine(d Deps) *Engine {
	if d.Locker == nil {
		d.Locker = progress.NewMemLocker()
	}
	return &Engine{
		results:     d.Results,
		progress:    d.Progress,
		locker:      d.Locker,
		key:         d.Key,
		learners:    d.Learners,
		events:      d.Events,
		agg:         progress.Aggregator{MaxUnits: d.MaxUnits},
		passPercent: d.UnitPassPercent,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Outcome describes an accepted submission.
type Outcome struct {
	Result       quiz.Result
	AssignedPath string
	Delta        progress.Delta
	// Breakdown marks each answered question correct or not; nil for aptitude.
	Breakdown map[string]bool
	Progress  progress.Progress
}

// Submit runs one submission end to end. The learner lock is held from the
// gate check until the progress update, and the progress update re-checks
// the gate inside its own transaction.
func (e *Engine) Submit(ctx context.Context, s quiz.Submission) (out Outcome, err error) {
	start := e.now()
	defer func() {
		label := typeLabel(s.Type)
		submissionsTotal.WithLabelValues(label, outcomeLabel(err)).Inc()
		submissionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	if err := s.Validate(); err != nil {
		return Outcome{}, err
	}
	glog.V(2).Infof("submission: learner=%s type=%s unit=%s kind=%s answers=%d",
		s.LearnerID, s.Type, s.UnitID, s.UnitKind, len(s.Answers))

	unlock, err := e.locker.Lock(ctx, s.LearnerID)
	if err != nil {
		return Outcome{}, quiz.StorageFailure("lock learner", err)
	}
	defer unlock()

	cur, err := e.progress.Get(ctx, s.LearnerID)
	if err != nil {
		return Outcome{}, err
	}
	if err := progress.Check(cur, s.Type, s.UnitKind, s.UnitID); err != nil {
		glog.V(2).Infof("submission: learner=%s rejected: %v", s.LearnerID, err)
		return Outcome{}, err
	}

	res, path, breakdown, err := e.score(s)
	if err != nil {
		return Outcome{}, err
	}

	if err := e.results.Insert(ctx, res); err != nil {
		glog.Errorf("submission: insert result for learner %s: %v", s.LearnerID, err)
		if quiz.KindOf(err) == "" {
			err = quiz.StorageFailure("insert result", err)
		}
		return Outcome{}, err
	}

	var delta progress.Delta
	updated, err := e.progress.Update(ctx, s.LearnerID, func(p *progress.Progress) error {
		d, err := e.agg.Apply(p, res, path)
		delta = d
		return err
	})
	if err != nil {
		glog.Errorf("submission: result %s saved for learner %s but progress update failed: %v", res.ID, s.LearnerID, err)
		e.appendEvent(ctx, syncx.TypeProgressApplyFail, res, map[string]any{
			"learnerId": res.LearnerID,
			"quizType":  res.Type,
			"unitId":    res.UnitID,
			"error":     err.Error(),
		})
		return Outcome{}, quiz.PartialFailure(res.ID, err)
	}

	if delta.UnitAdded {
		unitsCompleted.Inc()
	}
	if delta.UnitCapped {
		glog.Warningf("submission: learner %s passed unit %s but completed units are capped", s.LearnerID, s.UnitID)
	}
	e.appendEvent(ctx, syncx.TypeResultAccepted, res, map[string]any{
		"learnerId":           res.LearnerID,
		"quizType":            res.Type,
		"unitId":              res.UnitID,
		"score":               res.Score,
		"passed":              res.Passed,
		"completedUnitsCount": delta.CompletedUnitsCount,
	})

	return Outcome{
		Result:       res,
		AssignedPath: path,
		Delta:        delta,
		Breakdown:    breakdown,
		Progress:     updated,
	}, nil
}

func (e *Engine) score(s quiz.Submission) (quiz.Result, string, map[string]bool, error) {
	res := quiz.Result{
		ID:        e.newID(),
		LearnerID: s.LearnerID,
		Type:      s.Type,
		UnitID:    s.UnitID,
		UnitKind:  s.UnitKind,
		Answers:   s.Answers,
		Completed: true,
		CreatedAt: e.now().UTC(),
	}
	if s.Type != quiz.TypeUnit {
		res.UnitID, res.UnitKind = "", ""
	}

	if s.Type == quiz.TypeAptitude {
		total, err := grading.AptitudeTotal(s.CategoryScores, s.Total)
		if err != nil {
			return quiz.Result{}, "", nil, err
		}
		var declared []string
		if e.key != nil {
			declared = e.key.Categories()
		}
		path, _ := grading.AssignPath(s.CategoryScores, declared)
		res.Scores = make(map[string]float64, len(s.CategoryScores))
		for k, v := range s.CategoryScores {
			res.Scores[k] = v
		}
		res.Score = total
		res.TotalQuestions = len(s.Answers)
		res.Passed = true
		return res, path, nil, nil
	}

	var (
		key map[string]string
		ok  bool
	)
	if e.key != nil {
		key, ok = e.key.For(s.Type, s.UnitID, s.UnitKind)
	}
	if !ok {
		field, what := "quizType", string(s.Type)
		if s.Type == quiz.TypeUnit {
			field, what = "unitId", "unit "+s.UnitID+" ("+string(s.UnitKind)+")"
		}
		return quiz.Result{}, "", nil, quiz.InvalidInput(field, "no answer key configured for "+what)
	}
	tally, err := grading.Score(s.Answers, key)
	if err != nil {
		return quiz.Result{}, "", nil, err
	}
	pct, err := grading.Percentage(tally.Correct, tally.Total)
	if err != nil {
		return quiz.Result{}, "", nil, err
	}
	res.Score = float64(tally.Correct)
	res.Percentage = &pct
	res.TotalQuestions = tally.Total
	res.Passed = pct >= e.passPercent
	return res, "", tally.Breakdown, nil
}

func (e *Engine) appendEvent(ctx context.Context, typ string, res quiz.Result, data map[string]any) {
	if e.events == nil {
		return
	}
	ev, err := syncx.NewEvent(typ, res.ID, data)
	if err == nil {
		// The request may have been cancelled; the event must still land.
		ctx = context.WithoutCancel(ctx)
		err = e.events.Append(ctx, ev)
	}
	if err != nil {
		glog.Warningf("submission: append %s event for result %s: %v", typ, res.ID, err)
	}
}

var errNoLearners = errors.New("submission: learner store not configured")
