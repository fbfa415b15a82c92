package domain

// ErrorKind classifies a failed Result so callers can pick a recovery action.
type ErrorKind string

const (
	KindConnectivity ErrorKind = "connectivity"
	KindQuery        ErrorKind = "query"
	KindValidation   ErrorKind = "validation"
	KindAuth         ErrorKind = "auth"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
)

// Result is the uniform outcome of a gateway operation: either Data with
// Success set, or a human-readable Error with its Kind.
type Result[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
}

// OK wraps data in a successful Result.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail builds a failed Result.
func Fail[T any](kind ErrorKind, msg string) Result[T] {
	return Result[T]{Kind: kind, Error: msg}
}

// ResultError carries a failed Result through an error-returning API.
type ResultError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ResultError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrAuthRequired) hold for auth failures.
func (e *ResultError) Is(target error) bool {
	return e.Kind == KindAuth && target == ErrAuthRequired
}

// Err returns nil for a successful Result and a *ResultError otherwise.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return &ResultError{Kind: r.Kind, Msg: r.Error}
}
