package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-progress/internal/answerkey"
	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

type recordingEvents struct {
	mu     sync.Mutex
	events []syncx.Event
}

func (r *recordingEvents) Append(_ context.Context, e syncx.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// failingProgress accepts reads but refuses every update.
type failingProgress struct {
	*progress.MemoryStore
}

func (failingProgress) Update(context.Context, string, func(*progress.Progress) error) (progress.Progress, error) {
	return progress.Progress{}, quiz.StorageFailure("update progress", errors.New("disk full"))
}

type failingResults struct {
	quiz.ResultStore
}

func (failingResults) Insert(context.Context, quiz.Result) error {
	return errors.New("connection reset")
}

type harness struct {
	engine   *Engine
	results  quiz.ResultStore
	progress *progress.MemoryStore
	events   *recordingEvents
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	key, err := answerkey.Load("../answerkey/testdata/answer_key.json")
	require.NoError(t, err)
	h := &harness{
		results:  quiz.NewInMemoryStore(),
		progress: progress.NewInMemoryStore("u1", "u2"),
		events:   &recordingEvents{},
	}
	d := Deps{
		Results:         h.results,
		Progress:        h.progress,
		Key:             key,
		Events:          h.events,
		UnitPassPercent: 60,
	}
	for _, o := range opts {
		o(&d)
	}
	h.engine = NewEngine(d)
	var n atomic.Int64
	h.engine.newID = func() string { return fmt.Sprintf("r%03d", n.Add(1)) }
	return h
}

func (h *harness) history(t *testing.T, learnerID string, typ quiz.Type) []quiz.Result {
	t.Helper()
	rs, err := h.results.ListByLearner(context.Background(), learnerID, typ)
	require.NoError(t, err)
	return rs
}

func unitSub(learnerID, unit string, kind quiz.UnitKind, answers map[string]string) quiz.Submission {
	return quiz.Submission{Type: quiz.TypeUnit, LearnerID: learnerID, UnitID: unit, UnitKind: kind, Answers: answers}
}

var (
	fullPass = map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "d", "q5": "e"}
	fullFail = map[string]string{"q1": "a", "q2": "b", "q3": "x", "q4": "x", "q5": "x"}
)

func TestSubmit_InitialQuizScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.engine.Submit(ctx, quiz.Submission{
		Type:      quiz.TypePreAssessment,
		LearnerID: "u1",
		Answers:   map[string]string{"q1": "a", "q2": "b", "q3": "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.Result.Score)
	assert.Equal(t, 3, out.Result.TotalQuestions)
	require.NotNil(t, out.Result.Percentage)
	assert.Equal(t, 67, *out.Result.Percentage)
	assert.Equal(t, map[string]bool{"q1": true, "q2": false, "q3": true}, out.Breakdown)
	assert.True(t, out.Delta.ScoreSet)

	p, err := h.progress.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p.PreAssessment)
	assert.Equal(t, 67, *p.PreAssessment)
	assert.Len(t, h.history(t, "u1", quiz.TypePreAssessment), 1)
	assert.Equal(t, []string{syncx.TypeResultAccepted}, h.events.types())
}

func TestSubmit_SecondAttemptRejected(t *testing.T) {
	ctx := context.Background()
	for _, typ := range []quiz.Type{quiz.TypePreAssessment, quiz.TypePostAssessment} {
		t.Run(string(typ), func(t *testing.T) {
			h := newHarness(t)
			// All wrong: a zero percentage still completes the quiz.
			sub := quiz.Submission{Type: typ, LearnerID: "u1", Answers: map[string]string{"q1": "z"}}
			out, err := h.engine.Submit(ctx, sub)
			require.NoError(t, err)
			assert.Equal(t, 0, *out.Result.Percentage)

			_, err = h.engine.Submit(ctx, sub)
			assert.True(t, quiz.IsKind(err, quiz.KindAlreadyCompleted), "got %v", err)
			assert.ErrorContains(t, err, string(typ))
			assert.Len(t, h.history(t, "u1", typ), 1)

			p, _ := h.progress.Get(ctx, "u1")
			assert.Equal(t, int64(1), p.Version, "no second progress write")
		})
	}
}

func TestSubmit_AptitudeAssignsPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.engine.Submit(ctx, quiz.Submission{
		Type:           quiz.TypeAptitude,
		LearnerID:      "u1",
		Answers:        map[string]string{"q1": "x"},
		CategoryScores: map[string]float64{"linguistic": 3, "logical": 7, "interpersonal": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "logical", out.AssignedPath)
	assert.Equal(t, 12.0, out.Result.Score)
	assert.Nil(t, out.Result.Percentage)

	p, _ := h.progress.Get(ctx, "u1")
	assert.Equal(t, "logical", p.AssignedPath)
	assert.Equal(t, 7.0, p.AptitudeScores["logical"])

	_, err = h.engine.Submit(ctx, quiz.Submission{
		Type:           quiz.TypeAptitude,
		LearnerID:      "u1",
		Answers:        map[string]string{"q1": "x"},
		CategoryScores: map[string]float64{"interpersonal": 9},
	})
	assert.True(t, quiz.IsKind(err, quiz.KindAlreadyCompleted))
	p, _ = h.progress.Get(ctx, "u1")
	assert.Equal(t, "logical", p.AssignedPath)
}

func TestSubmit_AptitudeTieUsesDeclaredOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := newHarness(t)
		out, err := h.engine.Submit(context.Background(), quiz.Submission{
			Type:           quiz.TypeAptitude,
			LearnerID:      "u1",
			Answers:        map[string]string{"q1": "x"},
			CategoryScores: map[string]float64{"logical": 5, "linguistic": 5},
		})
		require.NoError(t, err)
		require.Equal(t, "linguistic", out.AssignedPath)
	}
}

func TestSubmit_AptitudeTotalFallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	zero := 0.0
	_, err := h.engine.Submit(ctx, quiz.Submission{
		Type: quiz.TypeAptitude, LearnerID: "u1", Answers: map[string]string{"q1": "x"}, Total: &zero,
	})
	assert.True(t, quiz.IsKind(err, quiz.KindInvalidInput))
	assert.Empty(t, h.history(t, "u1", ""))

	total := 40.0
	out, err := h.engine.Submit(ctx, quiz.Submission{
		Type: quiz.TypeAptitude, LearnerID: "u1", Answers: map[string]string{"q1": "x"}, Total: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, 40.0, out.Result.Score)
	assert.Empty(t, out.AssignedPath)

	p, _ := h.progress.Get(ctx, "u1")
	assert.True(t, p.Completed(quiz.TypeAptitude))
}

func TestSubmit_InvalidInputWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		sub   quiz.Submission
		field string
	}{
		{"empty answers", quiz.Submission{Type: quiz.TypePreAssessment, LearnerID: "u1", Answers: map[string]string{}}, "answers"},
		{"unknown type", quiz.Submission{Type: "midterm", LearnerID: "u1", Answers: map[string]string{"q1": "a"}}, "quizType"},
		{"unit without id", unitSub("u1", "", quiz.UnitKindFull, fullPass), "unitId"},
		{"unit without kind", unitSub("u1", "unit-1", "", fullPass), "unitQuizKind"},
		{"no answer key for unit kind", unitSub("u1", "unit-2", quiz.UnitKindPractice, fullPass), "unitId"},
		{"unknown unit", unitSub("u1", "unit-9", quiz.UnitKindFull, fullPass), "unitId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.engine.Submit(context.Background(), tt.sub)
			var qe *quiz.Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, quiz.KindInvalidInput, qe.Kind)
			assert.Equal(t, tt.field, qe.Field)
			assert.Empty(t, h.history(t, "u1", ""))
			assert.Empty(t, h.events.types())
		})
	}
}

func TestSubmit_UnknownLearner(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Submit(context.Background(), unitSub("ghost", "unit-1", quiz.UnitKindFull, fullPass))
	assert.True(t, quiz.IsKind(err, quiz.KindNotFound))
	assert.Empty(t, h.history(t, "ghost", ""))
}

func TestSubmit_UnitProgression(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out, err := h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindFull, fullFail))
	require.NoError(t, err)
	assert.False(t, out.Result.Passed)
	assert.Equal(t, 40, *out.Result.Percentage)
	assert.Equal(t, 0, out.Delta.CompletedUnitsCount)

	out, err = h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindPractice, map[string]string{"q1": "a"}))
	require.NoError(t, err)
	assert.True(t, out.Result.Passed)
	assert.False(t, out.Delta.UnitAdded, "practice never completes a unit")

	out, err = h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindFull,
		map[string]string{"q1": "a", "q2": "b", "q3": "c", "q4": "x", "q5": "x"}))
	require.NoError(t, err)
	assert.Equal(t, 60, *out.Result.Percentage)
	assert.True(t, out.Result.Passed, "pass mark is inclusive")
	assert.True(t, out.Delta.UnitAdded)
	assert.Equal(t, 1, out.Delta.CompletedUnitsCount)

	_, err = h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass))
	assert.True(t, quiz.IsKind(err, quiz.KindAlreadyCompleted))
	assert.ErrorContains(t, err, "unit-1")

	out, err = h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindRemedial, map[string]string{"q1": "a"}))
	require.NoError(t, err, "remedial stays open after completion")
	assert.Equal(t, 1, out.Delta.CompletedUnitsCount)

	assert.Len(t, h.history(t, "u1", quiz.TypeUnit), 4)
	p, _ := h.progress.Get(ctx, "u1")
	assert.Equal(t, []string{"unit-1"}, p.CompletedUnits())
}

func TestSubmit_ConcurrentFullPassCountsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var accepted, rejected atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			_, err := h.engine.Submit(gctx, unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass))
			switch {
			case err == nil:
				accepted.Add(1)
			case quiz.IsKind(err, quiz.KindAlreadyCompleted):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(15), rejected.Load())
	p, err := h.progress.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"unit-1"}, p.CompletedUnits())
	assert.Equal(t, 1, p.CompletedUnitsCount())
	assert.Len(t, h.history(t, "u1", quiz.TypeUnit), 1)
}

func TestSubmit_ConcurrentLearnersDoNotInterfere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range []string{"u1", "u2"} {
		for _, unit := range []string{"unit-1", "unit-2"} {
			answers := fullPass
			if unit == "unit-2" {
				answers = map[string]string{"q1": "t", "q2": "f"}
			}
			g.Go(func() error {
				_, err := h.engine.Submit(gctx, unitSub(id, unit, quiz.UnitKindFull, answers))
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	for _, id := range []string{"u1", "u2"} {
		p, err := h.progress.Get(ctx, id)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"unit-1", "unit-2"}, p.CompletedUnits())
		assert.Equal(t, 2, p.CompletedUnitsCount())
	}
}

func TestSubmit_MaxUnitsCap(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.MaxUnits = 1 })
	ctx := context.Background()

	_, err := h.engine.Submit(ctx, unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass))
	require.NoError(t, err)
	out, err := h.engine.Submit(ctx, unitSub("u1", "unit-2", quiz.UnitKindFull, map[string]string{"q1": "t", "q2": "f"}))
	require.NoError(t, err)
	assert.True(t, out.Delta.UnitCapped)
	assert.Equal(t, 1, out.Delta.CompletedUnitsCount)
	assert.Equal(t, 1, out.Progress.CompletedUnitsCount())
}

func TestSubmit_PartialFailure(t *testing.T) {
	mem := progress.NewInMemoryStore("u1")
	h := newHarness(t, func(d *Deps) { d.Progress = failingProgress{mem} })

	_, err := h.engine.Submit(context.Background(), unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass))
	var qe *quiz.Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, quiz.KindPartialFailure, qe.Kind)
	assert.Equal(t, "r001", qe.ResultID)
	assert.ErrorContains(t, err, "disk full")

	rs := h.history(t, "u1", quiz.TypeUnit)
	require.Len(t, rs, 1)
	assert.Equal(t, "r001", rs[0].ID)
	assert.Equal(t, []string{syncx.TypeProgressApplyFail}, h.events.types())
	assert.Equal(t, "r001", h.events.events[0].Key)
}

func TestSubmit_InsertFailureLeavesProgressUntouched(t *testing.T) {
	h := newHarness(t)
	h.engine.results = failingResults{h.results}

	_, err := h.engine.Submit(context.Background(), unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass))
	assert.True(t, quiz.IsKind(err, quiz.KindStorageFailure), "got %v", err)

	p, _ := h.progress.Get(context.Background(), "u1")
	assert.Equal(t, 0, p.CompletedUnitsCount())
	assert.Equal(t, int64(0), p.Version)
	assert.Empty(t, h.events.types())
}

func TestSubmit_CountTracksSetAcrossSequence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seq := []quiz.Submission{
		unitSub("u1", "unit-1", quiz.UnitKindFull, fullFail),
		unitSub("u1", "unit-2", quiz.UnitKindFull, map[string]string{"q1": "t", "q2": "f"}),
		unitSub("u1", "unit-1", quiz.UnitKindPractice, map[string]string{"q1": "a"}),
		unitSub("u1", "unit-2", quiz.UnitKindFull, map[string]string{"q1": "t", "q2": "f"}),
		unitSub("u1", "unit-1", quiz.UnitKindFull, fullPass),
	}
	for _, s := range seq {
		_, _ = h.engine.Submit(ctx, s)
		p, err := h.progress.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, len(p.CompletedUnits()), p.CompletedUnitsCount())
	}
	p, _ := h.progress.Get(ctx, "u1")
	assert.Equal(t, []string{"unit-2", "unit-1"}, p.CompletedUnits())
}

func TestCheckCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.engine.CheckCompletion(ctx, "u1", quiz.TypePostAssessment, "")
	require.NoError(t, err)
	assert.Equal(t, Completion{}, c)

	_, err = h.engine.Submit(ctx, quiz.Submission{Type: quiz.TypePostAssessment, LearnerID: "u1", Answers: map[string]string{"q1": "b", "q2": "d"}})
	require.NoError(t, err)
	c, err = h.engine.CheckCompletion(ctx, "u1", quiz.TypePostAssessment, "")
	require.NoError(t, err)
	assert.Equal(t, Completion{Completed: true, Score: 100}, c)

	_, err = h.engine.Submit(ctx, quiz.Submission{
		Type: quiz.TypeAptitude, LearnerID: "u1", Answers: map[string]string{"q1": "x"},
		CategoryScores: map[string]float64{"logical": 4},
	})
	require.NoError(t, err)
	c, err = h.engine.CheckCompletion(ctx, "u1", quiz.TypeAptitude, "")
	require.NoError(t, err)
	assert.True(t, c.Completed)
	assert.Equal(t, map[string]float64{"logical": 4}, c.Score)

	c, err = h.engine.CheckCompletion(ctx, "u1", quiz.TypeUnit, "unit-1")
	require.NoError(t, err)
	assert.False(t, c.Completed)

	_, err = h.engine.CheckCompletion(ctx, "u1", quiz.TypeUnit, "")
	assert.True(t, quiz.IsKind(err, quiz.KindInvalidInput))
	_, err = h.engine.CheckCompletion(ctx, "u1", "bogus", "")
	assert.True(t, quiz.IsKind(err, quiz.KindInvalidInput))
	_, err = h.engine.CheckCompletion(ctx, "ghost", quiz.TypeAptitude, "")
	assert.True(t, quiz.IsKind(err, quiz.KindNotFound))
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	mem := progress.NewInMemoryStore()
	learners := learner.NewInMemoryStore(mem)
	_, err := learners.BulkUpsert(ctx, []learner.Row{{ID: "s1", Username: "ana", Password: "pw"}})
	require.NoError(t, err)

	h := newHarness(t, func(d *Deps) {
		d.Progress = mem
		d.Learners = learners
	})
	_, err = h.engine.Submit(ctx, unitSub("s1", "unit-1", quiz.UnitKindFull, fullFail))
	require.NoError(t, err)
	_, err = h.engine.Submit(ctx, unitSub("s1", "unit-1", quiz.UnitKindFull, fullPass))
	require.NoError(t, err)

	prof, err := h.engine.Profile(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ana", prof.Learner.Username)
	assert.Equal(t, 1, prof.Progress.CompletedUnitsCount())
	assert.Len(t, prof.History, 2)

	_, err = h.engine.Profile(ctx, "ghost")
	assert.True(t, quiz.IsKind(err, quiz.KindNotFound))
}

func TestProfile_WithoutLearnerStore(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Profile(context.Background(), "u1")
	assert.ErrorIs(t, err, errNoLearners)
}
