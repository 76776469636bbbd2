package game

import "errors"

var (
	// ErrDuplicateSubmission means the current item already has a guess.
	// The session is unchanged; callers treat it as a no-op.
	ErrDuplicateSubmission = errors.New("guess is final")

	// ErrOutOfRange means there is no item after the current one; the caller
	// should finish the session instead.
	ErrOutOfRange = errors.New("no more items")

	// ErrNotAnswered means Advance was called before guessing the current item.
	ErrNotAnswered = errors.New("current item has no guess")

	// ErrFinished is returned by operations on a finished session.
	ErrFinished = errors.New("session finished")

	// ErrInvalidCoordinate is returned for non-finite round values.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrNoItems is returned when a session is created without items.
	ErrNoItems = errors.New("no items")
)
