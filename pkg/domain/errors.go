package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "validation"
	KindConstraint  Kind = "constraint"
	KindNumerical   Kind = "numerical"
	KindConcurrency Kind = "concurrency"
	KindImport      Kind = "import"
	KindNotFound    Kind = "not_found"
)

// Code identifies a specific rejection reason.
type Code string

// Error codes surfaced by the refinement core.
const (
	CodeOutOfBounds         Code = "OutOfBounds"
	CodeConstraintViolation Code = "ConstraintViolation"
	CodeDuplicateID         Code = "DuplicateId"
	CodeUnknownID           Code = "UnknownId"
	CodeInvalidBounds       Code = "InvalidBounds"
	CodeNonFiniteValue      Code = "NonFiniteValue"
	CodeParameterInUse      Code = "ParameterInUse"
	CodeCyclicConstraint    Code = "CyclicConstraint"
	CodeInvalidExpression   Code = "InvalidExpression"
	CodeInvalidSpaceGroup   Code = "InvalidSpaceGroup"
	CodeMalformedData       Code = "MalformedData"
	CodeNoFreeParameters    Code = "NoFreeParameters"
	CodeNoData              Code = "NoData"
	CodeFitAlreadyRunning   Code = "FitAlreadyRunning"
	CodeInvalidTransition   Code = "InvalidTransition"
	CodeNonFiniteOutput     Code = "NonFiniteOutput"
	CodeImportError         Code = "ImportError"
	CodeNotFound            Code = "NotFound"
)

var codeKinds = map[Code]Kind{
	CodeOutOfBounds:         KindValidation,
	CodeConstraintViolation: KindValidation,
	CodeDuplicateID:         KindValidation,
	CodeUnknownID:           KindValidation,
	CodeInvalidBounds:       KindValidation,
	CodeNonFiniteValue:      KindValidation,
	CodeParameterInUse:      KindValidation,
	CodeMalformedData:       KindValidation,
	CodeInvalidSpaceGroup:   KindValidation,
	CodeNoFreeParameters:    KindValidation,
	CodeNoData:              KindValidation,
	CodeCyclicConstraint:    KindConstraint,
	CodeInvalidExpression:   KindConstraint,
	CodeNonFiniteOutput:     KindNumerical,
	CodeFitAlreadyRunning:   KindConcurrency,
	CodeInvalidTransition:   KindConcurrency,
	CodeImportError:         KindImport,
	CodeNotFound:            KindNotFound,
}

// Error is the typed error returned by every component of the core.
// Subject names the offending identifier (parameter id, phase id, ...).
// Params lists parameter identifiers relevant to numerical failures.
type Error struct {
	Code    Code
	Subject string
	Message string
	Params  []string
	Err     error
}

// Kind reports the category of the error.
func (e *Error) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindValidation
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Subject != "" {
		b.WriteString(" ")
		b.WriteString(e.Subject)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Params) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Params, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors sharing the same code, so errors.Is(err, ErrOutOfBounds)
// holds for any OutOfBounds error regardless of subject.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Newf builds an Error for the given code and subject.
func Newf(code Code, subject, format string, args ...any) *Error {
	return &Error{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(code Code, subject string, err error) *Error {
	return &Error{Code: code, Subject: subject, Err: err}
}

// CodeOf extracts the code of the first *Error in the chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// KindOf extracts the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// Sentinels usable with errors.Is.
var (
	ErrOutOfBounds         = &Error{Code: CodeOutOfBounds}
	ErrConstraintViolation = &Error{Code: CodeConstraintViolation}
	ErrDuplicateID         = &Error{Code: CodeDuplicateID}
	ErrUnknownID           = &Error{Code: CodeUnknownID}
	ErrInvalidBounds       = &Error{Code: CodeInvalidBounds}
	ErrNonFiniteValue      = &Error{Code: CodeNonFiniteValue}
	ErrParameterInUse      = &Error{Code: CodeParameterInUse}
	ErrCyclicConstraint    = &Error{Code: CodeCyclicConstraint}
	ErrInvalidExpression   = &Error{Code: CodeInvalidExpression}
	ErrInvalidSpaceGroup   = &Error{Code: CodeInvalidSpaceGroup}
	ErrMalformedData       = &Error{Code: CodeMalformedData}
	ErrNoFreeParameters    = &Error{Code: CodeNoFreeParameters}
	ErrNoData              = &Error{Code: CodeNoData}
	ErrFitAlreadyRunning   = &Error{Code: CodeFitAlreadyRunning}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
	ErrNonFiniteOutput     = &Error{Code: CodeNonFiniteOutput}
	ErrImport              = &Error{Code: CodeImportError}
	ErrNotFound            = &Error{Code: CodeNotFound}
)
