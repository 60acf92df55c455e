package scheduler

import "errors"

var (
	ErrAlreadyStarted    = errors.New("scheduler: already started")
	ErrNotRunning        = errors.New("scheduler: not running")
	ErrHealthcheckFailed = errors.New("scheduler: healthcheck failed")
	ErrStopTimeout       = errors.New("scheduler: timed out waiting for running cycle")
)
