package http

import (
	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

type Services struct {
	Auth     *auth.AuthService
	Engine   Engine
	Learners learner.Store
	Events   EventLister
	// AllowClaimRole keeps the token's role for subjects missing from the
	// learner store. Meant for offline/dev mode only.
	AllowClaimRole bool
}

// Mount registers the authenticated API on r.
func Mount(r chi.Router, s Services) {
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(s.Auth))
		pr.Use(auth.AttachRoleFromStore(s.Learners, s.AllowClaimRole))

		submit := SubmitQuizHandler(s.Engine)
		pr.With(rbac.Require(rbac.PermQuizSubmit)).Post("/quiz-results", submit)
		pr.With(rbac.Require(rbac.PermQuizSubmit)).Post("/submit-quiz-result", submit)

		view := rbac.RequireAny(rbac.PermProgressViewOwn, rbac.PermProgressViewAll)
		check := CheckCompletionHandler(s.Engine)
		pr.With(view).Get("/quiz-results/check-completion", check)
		pr.With(view).Get("/check-completion", check)
		pr.With(view).Get("/learner-progress", LearnerProgressHandler(s.Engine))

		pr.Get("/users/me", ProfileHandler(s.Engine))

		pr.With(rbac.Require(rbac.PermLearnersBulk)).
			Post("/learners/bulk", BulkUpsertLearnersHandler(s.Learners))
		if s.Events != nil {
			pr.With(rbac.Require(rbac.PermEventsView)).
				Get("/admin/events", ListEventsHandler(s.Events))
		}
	})
}
