package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"

	"github.com/mind-engage/mindengage-progress/internal/quiz"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json field names so errors match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into an InvalidInput.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return quiz.InvalidInput("", "invalid input")
	}
	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return quiz.InvalidInput(field, field+" is required")
	case "min":
		return quiz.InvalidInput(field, field+" must not be empty")
	case "oneof":
		return quiz.InvalidInput(field, "invalid "+field+": "+fe.Param()+" expected")
	default:
		return quiz.InvalidInput(field, "invalid "+field)
	}
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	ResultID string `json:"resultId,omitempty"`
}

func statusFor(k quiz.Kind) int {
	switch k {
	case quiz.KindInvalidInput, quiz.KindAlreadyCompleted:
		return http.StatusBadRequest
	case quiz.KindNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the quiz error taxonomy onto status codes. Server-side
// failures never echo the underlying storage error.
func writeError(w http.ResponseWriter, err error) {
	var qe *quiz.Error
	if !errors.As(err, &qe) {
		glog.Errorf("api: unclassified error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: string(quiz.KindStorageFailure)})
		return
	}
	status := statusFor(qe.Kind)
	body := errorBody{Error: qe.Msg, Code: string(qe.Kind), Field: qe.Field, ResultID: qe.ResultID}
	if status == http.StatusInternalServerError && qe.Kind != quiz.KindPartialFailure {
		body.Error = "storage failure"
	}
	if body.Error == "" {
		body.Error = qe.Error()
	}
	writeJSON(w, status, body)
}

func writeStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")})
}
