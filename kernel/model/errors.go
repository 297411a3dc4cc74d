package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// CommunicationError is a transport level failure against a device: the request
// never produced a usable reply. It is transient and retried within a budget.
type CommunicationError struct {
	Host string
	Op   string
	Err  error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s on [%s] failed: %v", e.Op, e.Host, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the device answered but the reply could not be
// decoded or lacked a field the operation depends on.
type MalformedResponseError struct {
	Host   string
	Op     string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s on [%s] returned a malformed response: %s", e.Op, e.Host, e.Detail)
}

// ErrNothingToCommit is reported by a device that accepted a commit request but
// had no candidate changes, so no job was started.
var ErrNothingToCommit = errors.New("no changes to commit")

type DuplicateJobError struct {
	Key JobKey
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("job [%s] is already registered", e.Key)
}

type UnknownJobError struct {
	Key JobKey
}

func (e *UnknownJobError) Error() string {
	return fmt.Sprintf("job [%s] is not registered", e.Key)
}

func NewCommunicationError(host, op string, err error) error {
	return &CommunicationError{Host: host, Op: op, Err: err}
}

func NewMalformedResponseError(host, op, format string, args ...any) error {
	return &MalformedResponseError{Host: host, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err belongs to the family that is retried under an
// attempt or time budget rather than surfaced immediately.
func IsTransient(err error) bool {
	var comm *CommunicationError
	var malformed *MalformedResponseError
	return errors.As(err, &comm) || errors.As(err, &malformed)
}

// IsRegistryViolation reports a broken job registry contract. These are bugs,
// not device behaviour.
func IsRegistryViolation(err error) bool {
	var dup *DuplicateJobError
	var unknown *UnknownJobError
	return errors.As(err, &dup) || errors.As(err, &unknown)
}
