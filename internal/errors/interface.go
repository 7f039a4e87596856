package errors

// ErrorCode identifies an error kind. Codes are stable strings and are
// exposed to API clients.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Message returns the registered message for c, or c itself
func (c ErrorCode) Message() string {
	return GetErrorMessage(c)
}

// Error is a coded error. Two Errors match under Is when their codes are
// equal, so errors.Is(err, New().New(code)) finds code anywhere in err's chain.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds Errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
