package types

import (
	"fmt"

	"github.com/juju/errors"
)

var (
	_ error = &SpecError{}
	_ error = &ExecError{}
	_ error = &CancelError{}
)

// NewSpecError marks a malformed node definition, the attempt is
// aborted before anything was started.
func NewSpecError(otherErr error) error {
	return &SpecError{baseError: newBaseErr(otherErr)}
}

func NewSpecErrorf(format string, args ...interface{}) error {
	return NewSpecError(errors.Errorf(format, args...))
}

// NewExecError marks a failed execution: non-zero exit or a failed remote job.
func NewExecError(otherErr error, exitCode int) error {
	return &ExecError{baseError: newBaseErr(otherErr), ExitCode: exitCode}
}

func NewExecErrorf(exitCode int, format string, args ...interface{}) error {
	return NewExecError(errors.Errorf(format, args...), exitCode)
}

// NewCancelError is returned by best effort cancel paths. Callers log it
// and move on.
func NewCancelError(otherErr error) error {
	return &CancelError{baseError: newBaseErr(otherErr)}
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

func (e *baseError) Unwrap() error {
	return e.BaseErr
}

type SpecError struct {
	*baseError
}

type ExecError struct {
	*baseError
	ExitCode int
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exit code %d: %s", e.ExitCode, e.BaseErr.Error())
}

type CancelError struct {
	*baseError
}

func IsSpecError(err error) bool {
	var se *SpecError
	return errors.As(err, &se)
}

func IsExecError(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}
