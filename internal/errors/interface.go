package errors

// ErrorCode identifies an error kind in logs and in HasCode checks
type ErrorCode string

// Coded is implemented by any error that carries an ErrorCode. HasCode,
// CodeOf and IsInput look for it along the wrap chain.
type Coded interface {
	error
	Code() ErrorCode
}

// Error is the domain error produced by a Factory
type Error interface {
	Coded
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
