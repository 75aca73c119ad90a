package domain

import "errors"

var (
	// ErrTaskRejected is recorded on a task handle when the admission policy drops the submission.
	ErrTaskRejected = errors.New("task rejected by admission policy")
	// ErrTaskCancelled is recorded on a task handle cancelled before or while running.
	ErrTaskCancelled = errors.New("task cancelled")
	// ErrSchedulerTerminated is recorded on queued tasks dropped by a forced pool termination.
	ErrSchedulerTerminated = errors.New("scheduler terminated")
	// ErrTaskSkipped is recorded on a one-shot task whose firing was suppressed by the connected-clients guard.
	ErrTaskSkipped = errors.New("task skipped: no connected clients")
	// ErrHostInactive is returned by adapters when the authoritative context no longer accepts work.
	ErrHostInactive = errors.New("host inactive")
	// ErrProfileNotFound is returned by permission providers when an identity has no group assignment.
	ErrProfileNotFound = errors.New("profile not found")
)
