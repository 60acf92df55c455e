package store

import "errors"

var (
	ErrFindDue            = errors.New("store: failed to load due reminders")
	ErrMarkDelivered      = errors.New("store: failed to mark reminders delivered")
	ErrLoadOperatorConfig = errors.New("store: failed to load operator config")
	ErrSaveOperatorConfig = errors.New("store: failed to save operator config")
	ErrListReminders      = errors.New("store: failed to list reminders")
	ErrNilOperatorConfig  = errors.New("store: operator config is nil")
)
