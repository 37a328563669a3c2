package http

import (
	"net/http"
	"strings"

	auth "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
)

// resolveLearner picks the learner a request acts on: the explicit user if
// given, else the token subject. Acting on someone else needs anyPerm.
// It writes the error response itself and returns ok=false on failure.
func resolveLearner(w http.ResponseWriter, r *http.Request, requested, anyPerm string) (string, bool) {
	sub := auth.SubjectFromContext(r.Context())
	target := strings.TrimSpace(requested)
	if target == "" {
		target = sub
	}
	if target == "" {
		writeStatus(w, http.StatusUnauthorized, "learner identity required")
		return "", false
	}
	if target != sub && !rbac.Can(rbac.RoleFromContext(r.Context()), anyPerm) {
		writeStatus(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return target, true
}
