package bridge

import (
	"errors"
	"fmt"
)

// CodeInvalidArgument is the only error code the bridge produces.
const CodeInvalidArgument = "INVALID_ARGUMENT"

var ErrNotImplemented = errors.New("method not implemented")

type Status string

const (
	StatusSuccess        Status = "success"
	StatusError          Status = "error"
	StatusNotImplemented Status = "not_implemented"
)

// Result is the single response to a method call.
type Result struct {
	Status  Status `json:"status"`
	Value   string `json:"value,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type ArgumentError struct {
	Argument string
	Message  string
}

func (e *ArgumentError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("%s: %s", CodeInvalidArgument, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", CodeInvalidArgument, e.Argument, e.Message)
}

func Success(value string) Result {
	return Result{Status: StatusSuccess, Value: value}
}

func Failure(err error) Result {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return Result{Status: StatusError, Code: CodeInvalidArgument, Message: argErr.Message}
	}
	return Result{Status: StatusError, Code: CodeInvalidArgument, Message: err.Error()}
}

func NotImplemented() Result {
	return Result{Status: StatusNotImplemented}
}

// Err converts a non-success result into an error for callers that only
// care whether the call went through.
func (r Result) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusNotImplemented:
		return ErrNotImplemented
	case StatusError:
		if r.Code == CodeInvalidArgument {
			return &ArgumentError{Message: r.Message}
		}
		return fmt.Errorf("%s: %s", r.Code, r.Message)
	default:
		return fmt.Errorf("unknown result status %q", r.Status)
	}
}
