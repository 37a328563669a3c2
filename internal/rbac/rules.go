package rbac

const (
	PermQuizSubmit      = "quiz:submit"
	PermQuizSubmitAny   = "quiz:submit-any"
	PermProgressViewOwn = "progress:view-own"
	PermProgressViewAll = "progress:view-all"
	PermLearnersBulk    = "learners:bulk_upsert"
	PermEventsView      = "events:view"
)

// Default policy. Students act on themselves; teachers on any learner.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizSubmit,
		PermProgressViewOwn,
	},
	"teacher": {
		"quiz:*",
		"progress:*",
		PermLearnersBulk,
	},
	"admin": {
		"*", // everything
	},
}
