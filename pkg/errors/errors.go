package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeParse      Code = "PARSE_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	// CodeCatalogDegraded marks a catalog that could not be read and was
	// replaced by an empty, correctly-schemed table.
	CodeCatalogDegraded Code = "CATALOG_DEGRADED"
	CodeDependency      Code = "DEPENDENCY_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

type Metadata struct {
	Retryable      bool
	Recoverable    bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:      false,
		Recoverable:    false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeParse: {
		Retryable:      false,
		Recoverable:    false,
		PublicMessage:  "manifest could not be parsed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		Retryable:      false,
		Recoverable:    false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeCatalogDegraded: {
		Retryable:      false,
		Recoverable:    true,
		PublicMessage:  "catalog unreadable, recovered empty",
		DetailsAllowed: true,
	},
	CodeDependency: {
		Retryable:      true,
		Recoverable:    false,
		PublicMessage:  "collaborator unavailable",
		DetailsAllowed: true,
	},
	CodeInternal: {
		Retryable:      true,
		Recoverable:    false,
		PublicMessage:  "internal error",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Retryable reports whether a caller may retry the failed step without
// re-deriving state; collaborator failures are, parse failures are not.
func Retryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Retryable
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
