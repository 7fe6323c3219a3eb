package internal

import "errors"

var (
	// ErrUnauthenticated means no user identity was attached to the request
	ErrUnauthenticated = errors.New("user not found")
	// ErrInvalidInput wraps a missing or malformed required argument
	ErrInvalidInput = errors.New("invalid input")
	// ErrGenerationFailed means a model returned nothing usable
	ErrGenerationFailed = errors.New("generation failed")
	ErrNotFound         = errors.New("not found")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrDownloadFailed   = errors.New("download failed")
)

// invalidInput returns an error that matches ErrInvalidInput but prints only msg
func invalidInput(msg string) error {
	return &messageError{msg: msg, kind: ErrInvalidInput}
}

// generationFailed returns an error that matches ErrGenerationFailed but prints only msg
func generationFailed(msg string) error {
	return &messageError{msg: msg, kind: ErrGenerationFailed}
}

type messageError struct {
	msg  string
	kind error
}

func (e *messageError) Error() string { return e.msg }

func (e *messageError) Unwrap() error { return e.kind }
