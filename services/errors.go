package services

// Service error taxonomy. Every engine operation validates preconditions in
// order and fails fast on the first violation, returning one of these typed
// errors. Controllers map them to HTTP statuses.

// ValidationError indicates malformed or missing input (caller's fault).
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced entity is absent.
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// PermissionError indicates a role or ownership check failed.
type PermissionError struct {
	Code    string
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

// ConflictError indicates a valid request whose transition the current
// state forbids ("already done", "not yet ready", "assigned to someone else").
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// UpstreamError wraps a blob store or database failure. It is logged and
// surfaced as a generic 5xx without leaking internal detail.
type UpstreamError struct {
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func validationErr(code, message string) error {
	return &ValidationError{Code: code, Message: message}
}

func notFoundErr(code, message string) error {
	return &NotFoundError{Code: code, Message: message}
}

func permissionErr(code, message string) error {
	return &PermissionError{Code: code, Message: message}
}

func conflictErr(code, message string) error {
	return &ConflictError{Code: code, Message: message}
}

func upstreamErr(message string, err error) error {
	return &UpstreamError{Code: "UPSTREAM_ERROR", Message: message, Err: err}
}
