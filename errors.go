package main

import "errors"

// error kinds reported by session operations - every failure is wrapped
// around one of these so the log severity can be derived from it
var (
	errInvalidInput   = errors.New("invalid input")
	errLoadFailure    = errors.New("script load failed")
	errSDKInvocation  = errors.New("sdk invocation failed")
	errGuardViolation = errors.New("operation not allowed in current state")
)

// severityFor maps an error to the severity it is logged with,
// guard violations are only warnings
func severityFor(err error) severity {
	if errors.Is(err, errGuardViolation) {
		return severityWarning
	}

	return severityError
}
