package dispatch

import "errors"

var (
	ErrFindDue     = errors.New("dispatch: failed to load due reminders")
	ErrCommitMarks = errors.New("dispatch: failed to commit delivered marks")
	ErrInvalidMode = errors.New("dispatch: invalid recipient mode")
)
