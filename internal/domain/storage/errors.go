package storage

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeConnectionFailed     Code = 1001
	CodeBucketNotFound       Code = 1002
	CodeBucketCreationFailed Code = 1003
	CodePolicyFailed         Code = 1004

	CodeFileNotFound  Code = 2001
	CodeUploadFailed  Code = 2002
	CodeDeleteFailed  Code = 2003
	CodeRequestFailed Code = 2004

	CodeInvalidFile      Code = 3001
	CodeFileTooLarge     Code = 3002
	CodeInvalidExtension Code = 3003
)

var codeNames = map[Code]string{
	CodeConnectionFailed:     "connection failed",
	CodeBucketNotFound:       "bucket not found",
	CodeBucketCreationFailed: "bucket creation failed",
	CodePolicyFailed:         "policy failed",
	CodeFileNotFound:         "file not found",
	CodeUploadFailed:         "upload failed",
	CodeDeleteFailed:         "delete failed",
	CodeRequestFailed:        "request failed",
	CodeInvalidFile:          "invalid file",
	CodeFileTooLarge:         "file too large",
	CodeInvalidExtension:     "invalid extension",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("storage error %d", int(c))
}

// IsValidation reports whether the code describes a caller mistake detected
// before any backend call.
func (c Code) IsValidation() bool { return c >= 3000 && c < 4000 }

// Error is the only error type the storage gateway returns.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrConnectionFailed     = &Error{Code: CodeConnectionFailed}
	ErrBucketNotFound       = &Error{Code: CodeBucketNotFound}
	ErrBucketCreationFailed = &Error{Code: CodeBucketCreationFailed}
	ErrPolicyFailed         = &Error{Code: CodePolicyFailed}
	ErrFileNotFound         = &Error{Code: CodeFileNotFound}
	ErrUploadFailed         = &Error{Code: CodeUploadFailed}
	ErrDeleteFailed         = &Error{Code: CodeDeleteFailed}
	ErrRequestFailed        = &Error{Code: CodeRequestFailed}
	ErrInvalidFile          = &Error{Code: CodeInvalidFile}
	ErrFileTooLarge         = &Error{Code: CodeFileTooLarge}
	ErrInvalidExtension     = &Error{Code: CodeInvalidExtension}
)

// Backend adapters return these sentinels for their own "not found" replies;
// the gateway turns them into typed errors.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrNoSuchBucket   = errors.New("bucket does not exist")
)

func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}
