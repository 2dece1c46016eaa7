package errors

import "errors"

var (
	ErrInvalidVoteInput    = errors.New("invalid vote input")
	ErrInvalidSessionInput = errors.New("invalid session input")
	ErrSessionNotFound     = errors.New("session not found")
	ErrCandidateNotInQueue = errors.New("candidate is not in the session queue")
	ErrSessionFinished     = errors.New("session is already finished")
	ErrConflict            = errors.New("concurrent write conflict")
	ErrBusy                = errors.New("store is busy, retry")
	ErrTallyInvariant      = errors.New("tally viewer invariant violated")
)
