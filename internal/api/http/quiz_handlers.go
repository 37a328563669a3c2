package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
	"github.com/mind-engage/mindengage-progress/internal/submission"
)

// Engine is the submission surface the handlers need.
type Engine interface {
	Submit(ctx context.Context, s quiz.Submission) (submission.Outcome, error)
	CheckCompletion(ctx context.Context, learnerID string, typ quiz.Type, unitID string) (submission.Completion, error)
	Progress(ctx context.Context, learnerID string) (progress.Progress, error)
	Profile(ctx context.Context, learnerID string) (submission.Profile, error)
}

type submitRequest struct {
	QuizType     string             `json:"quizType" validate:"required,oneof=intelligence initial final unit"`
	UnitID       string             `json:"unitId" validate:"max=128"`
	UnitQuizKind string             `json:"unitQuizKind" validate:"omitempty,oneof=small full remedial"`
	Answers      map[string]string  `json:"answers" validate:"required,min=1"`
	Scores       map[string]float64 `json:"scores"`
	Score        *float64           `json:"score"`
	User         string             `json:"user" validate:"max=128"`
}

type submitResponse struct {
	ID                  string             `json:"id"`
	QuizType            quiz.Type          `json:"quizType"`
	UnitID              string             `json:"unitId,omitempty"`
	UnitQuizKind        quiz.UnitKind      `json:"unitQuizKind,omitempty"`
	Score               float64            `json:"score"`
	Percentage          *int               `json:"percentage,omitempty"`
	Scores              map[string]float64 `json:"scores,omitempty"`
	AssignedPath        string             `json:"assignedPath,omitempty"`
	CompletedUnitsCount *int               `json:"completedUnitsCount,omitempty"`
	TotalQuestions      int                `json:"totalQuestions"`
	Passed              bool               `json:"passed"`
	Results             map[string]bool    `json:"results,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// SubmitQuizHandler handles POST /quiz-results.
func SubmitQuizHandler(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, quiz.InvalidInput("", "bad json"))
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, validationError(err))
			return
		}
		learnerID, ok := resolveLearner(w, r, req.User, rbac.PermQuizSubmitAny)
		if !ok {
			return
		}

		out, err := engine.Submit(r.Context(), quiz.Submission{
			Type:           quiz.Type(req.QuizType),
			UnitKind:       quiz.UnitKind(req.UnitQuizKind),
			UnitID:         req.UnitID,
			LearnerID:      learnerID,
			Answers:        req.Answers,
			CategoryScores: req.Scores,
			Total:          req.Score,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		res := out.Result
		resp := submitResponse{
			ID:             res.ID,
			QuizType:       res.Type,
			UnitID:         res.UnitID,
			UnitQuizKind:   res.UnitKind,
			Score:          res.Score,
			Percentage:     res.Percentage,
			Scores:         res.Scores,
			AssignedPath:   out.AssignedPath,
			TotalQuestions: res.TotalQuestions,
			Passed:         res.Passed,
			Results:        out.Breakdown,
			CreatedAt:      res.CreatedAt,
		}
		if res.Type == quiz.TypeUnit {
			n := out.Delta.CompletedUnitsCount
			resp.CompletedUnitsCount = &n
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// CheckCompletionHandler handles GET /quiz-results/check-completion.
func CheckCompletionHandler(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		learnerID, ok := resolveLearner(w, r, q.Get("user"), rbac.PermProgressViewAll)
		if !ok {
			return
		}
		c, err := engine.CheckCompletion(r.Context(), learnerID, quiz.Type(q.Get("quizType")), q.Get("unitId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

type progressResponse struct {
	AssignedPath        *string  `json:"assignedPath"`
	CompletedUnitsCount int      `json:"completedUnitsCount"`
	CompletedUnits      []string `json:"completedUnits"`
}

func toProgressResponse(p progress.Progress) progressResponse {
	out := progressResponse{
		CompletedUnitsCount: p.CompletedUnitsCount(),
		CompletedUnits:      p.CompletedUnits(),
	}
	if p.AssignedPath != "" {
		path := p.AssignedPath
		out.AssignedPath = &path
	}
	return out
}

// LearnerProgressHandler handles GET /learner-progress.
func LearnerProgressHandler(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID, ok := resolveLearner(w, r, r.URL.Query().Get("user"), rbac.PermProgressViewAll)
		if !ok {
			return
		}
		p, err := engine.Progress(r.Context(), learnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProgressResponse(p))
	}
}

type resultView struct {
	ID             string             `json:"id"`
	QuizType       quiz.Type          `json:"quizType"`
	UnitID         string             `json:"unitId,omitempty"`
	UnitQuizKind   quiz.UnitKind      `json:"unitQuizKind,omitempty"`
	Score          float64            `json:"score"`
	Percentage     *int               `json:"percentage,omitempty"`
	Scores         map[string]float64 `json:"scores,omitempty"`
	TotalQuestions int                `json:"totalQuestions"`
	Passed         bool               `json:"passed"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// ProfileHandler handles GET /users/me for the token subject.
func ProfileHandler(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID, ok := resolveLearner(w, r, "", "")
		if !ok {
			return
		}
		prof, err := engine.Profile(r.Context(), learnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		history := make([]resultView, 0, len(prof.History))
		for _, res := range prof.History {
			history = append(history, resultView{
				ID:             res.ID,
				QuizType:       res.Type,
				UnitID:         res.UnitID,
				UnitQuizKind:   res.UnitKind,
				Score:          res.Score,
				Percentage:     res.Percentage,
				Scores:         res.Scores,
				TotalQuestions: res.TotalQuestions,
				Passed:         res.Passed,
				CreatedAt:      res.CreatedAt,
			})
		}
		p := prof.Progress
		writeJSON(w, http.StatusOK, map[string]any{
			"learner":        prof.Learner,
			"progress":       toProgressResponse(p),
			"aptitudeScores": p.AptitudeScores,
			"preAssessment":  p.PreAssessment,
			"postAssessment": p.PostAssessment,
			"quizResults":    history,
		})
	}
}
