package scheduler

import "errors"

// ErrInvariantViolation reports scheduler state that should be impossible,
// such as evicting a referenced resource or a missing size record.
var ErrInvariantViolation = errors.New("scheduler invariant violation")
