package quiz

import (
	"errors"
	"fmt"
)

// Kind classifies submission failures.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindAlreadyCompleted Kind = "already_completed"
	KindNotFound         Kind = "not_found"
	KindPartialFailure   Kind = "partial_failure"
	KindStorageFailure   Kind = "storage_failure"
)

type Error struct {
	Kind  Kind
	Field string
	Msg   string
	// ResultID is set for partial failures: the result row that was written.
	ResultID string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidInput(field, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Msg: msg}
}

func AlreadyCompleted(msg string) *Error {
	return &Error{Kind: KindAlreadyCompleted, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func PartialFailure(resultID string, err error) *Error {
	return &Error{
		Kind:     KindPartialFailure,
		Msg:      "result " + resultID + " saved but learner progress was not updated",
		ResultID: resultID,
		Err:      err,
	}
}

func StorageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Msg: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
