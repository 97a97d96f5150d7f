// Package wrberr defines the structured error values surfaced to page code.
//
// Every fallible host call resolves to either a result or a {code, message}
// pair. Messages are bounded ASCII so they can be rendered verbatim in a
// status region; backend errors are passed through under a protocol code.
package wrberr

import (
	"fmt"
	"strings"
)

// Code identifies an error class on the host-call surface.
type Code uint32

const (
	CodeInfallible Code = 0
	CodeInvalid    Code = 1
	CodeExists     Code = 2
	CodeNotFound   Code = 3

	// Pod storage protocol
	CodePodNotOpen       Code = 1000
	CodeNoSlot           Code = 1001
	CodeNoSlice          Code = 1002
	CodeOpenFailure      Code = 1003
	CodeSlotAllocFailure Code = 1004
	CodeFetchSlotFailure Code = 1005
	CodePutSliceFailure  Code = 1006
	CodeSyncSlotFailure  Code = 1007

	CodeReadonlyCallFailure Code = 2000
	CodeBuffToUTF8Failure   Code = 3000
	CodeASCIIToUTF8Failure  Code = 4000
)

// MaxMessageLen bounds the diagnostic message in bytes.
const MaxMessageLen = 512

// Error is a host-call failure. Message is ASCII and at most MaxMessageLen
// bytes; construction enforces both.
type Error struct {
	Code    Code
	Message string
}

// New builds an Error with a bounded ASCII message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: boundASCII(fmt.Sprintf(format, args...))}
}

// Wrap surfaces an external collaborator's failure verbatim under the given
// protocol code.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: boundASCII(err.Error())}
}

func (e *Error) Error() string {
	return fmt.Sprintf("wrb error %d: %s", e.Code, e.Message)
}

// Is matches on code so callers can use errors.Is with a bare code sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// boundASCII strips non-ASCII bytes and truncates to MaxMessageLen.
func boundASCII(s string) string {
	var b strings.Builder
	for i := 0; i < len(s) && b.Len() < MaxMessageLen; i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}
