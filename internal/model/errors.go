package model

import "errors"

var (
	// ErrValidation marks a malformed request. The caller must fix the input.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyAnnulled is returned when annulling a transaction twice.
	ErrAlreadyAnnulled = errors.New("transaction already annulled")
	// ErrNotFound is returned for unknown account or transaction identities.
	ErrNotFound = errors.New("not found")
	// ErrProtected is returned when deleting a record that is still referenced.
	ErrProtected = errors.New("record is referenced and cannot be deleted")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrTransient marks a storage fault (deadlock, lock timeout, lost
	// connection) after which the whole unit of work was rolled back and
	// the operation may be retried.
	ErrTransient = errors.New("transient storage error")
	// ErrInvariantViolation marks stored state that should be impossible.
	ErrInvariantViolation = errors.New("invariant violation")
)
