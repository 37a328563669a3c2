package auth

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/mind-engage/mindengage-progress/internal/learner"
	"github.com/mind-engage/mindengage-progress/internal/quiz"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

// AttachRoleFromStore replaces the token's role with the stored learner
// role, so demoting a learner takes effect before the token expires.
// allowClaimFallback keeps the claim role for subjects unknown to the store
// (dev tokens); otherwise those requests get 401.
func AttachRoleFromStore(learners learner.Store, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			l, err := learners.Get(ctx, sub)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, string(l.Role))))
			case quiz.IsKind(err, quiz.KindNotFound):
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "unknown learner", http.StatusUnauthorized)
			default:
				glog.Errorf("auth: resolve role for %s: %v", sub, err)
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
