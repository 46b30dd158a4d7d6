package cty

import (
	"errors"
	"fmt"
)

// ValidationError reports raw data that does not conform to a type.
// Path locates the offending element relative to the validated root.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Path addresses the offending element; empty for the root.
	Path Path

	// Message is a human-readable description.
	Message string
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeTypeMismatch indicates data of the wrong kind.
	ErrCodeTypeMismatch ValidationErrorCode = "TYPE_MISMATCH"

	// ErrCodeMissingAttribute indicates a declared object attribute is absent.
	ErrCodeMissingAttribute ValidationErrorCode = "MISSING_ATTRIBUTE"

	// ErrCodeUnexpectedAttribute indicates an attribute the object type does not declare.
	ErrCodeUnexpectedAttribute ValidationErrorCode = "UNEXPECTED_ATTRIBUTE"

	// ErrCodeArityMismatch indicates a tuple of the wrong length.
	ErrCodeArityMismatch ValidationErrorCode = "ARITY_MISMATCH"

	// ErrCodeDuplicateKey indicates two map keys that normalise to the same string.
	ErrCodeDuplicateKey ValidationErrorCode = "DUPLICATE_KEY"

	// ErrCodeInvalidNumber indicates a number that is not a finite decimal.
	ErrCodeInvalidNumber ValidationErrorCode = "INVALID_NUMBER"

	// ErrCodeInvalidString indicates string data that is not valid UTF-8.
	ErrCodeInvalidString ValidationErrorCode = "INVALID_STRING"

	// ErrCodeUninferrable indicates data whose type cannot be inferred for dynamic.
	ErrCodeUninferrable ValidationErrorCode = "UNINFERRABLE"

	// ErrCodeCapsuleMismatch indicates a host value of the wrong native type.
	ErrCodeCapsuleMismatch ValidationErrorCode = "CAPSULE_MISMATCH"

	// ErrCodeInconsistentElements indicates collection elements of differing types.
	ErrCodeInconsistentElements ValidationErrorCode = "INCONSISTENT_ELEMENTS"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func validationErrorf(code ValidationErrorCode, path Path, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Path: path.Copy(), Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PathError reports a failed navigation step.
type PathError struct {
	Code PathErrorCode

	// Step is the step that failed and Index its position in the path.
	Step  PathStep
	Index int

	Message string
}

// PathErrorCode categorizes navigation failures.
type PathErrorCode string

const (
	ErrCodeNotObject       PathErrorCode = "NOT_OBJECT"
	ErrCodeNoAttribute     PathErrorCode = "NO_ATTRIBUTE"
	ErrCodeNotMap          PathErrorCode = "NOT_MAP"
	ErrCodeNoKey           PathErrorCode = "NO_KEY"
	ErrCodeNotIndexable    PathErrorCode = "NOT_INDEXABLE"
	ErrCodeIndexOutOfRange PathErrorCode = "INDEX_OUT_OF_RANGE"
	ErrCodeNullValue       PathErrorCode = "NULL_VALUE"
)

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: step %d (%s): %s", e.Code, e.Index, e.Step, e.Message)
}

// IsPathError reports whether err is or wraps a *PathError.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}

// FunctionError reports bad operands or parameters passed to an operation
// over values. It is distinct from ValidationError: the data conformed to its
// type but the operation cannot accept it.
type FunctionError struct {
	Code FunctionErrorCode

	// Function names the failing operation, Param the offending operand.
	Function string
	Param    string

	Message string
}

// FunctionErrorCode categorizes function errors.
type FunctionErrorCode string

const (
	// ErrCodeWrongType indicates an operand of the wrong type.
	ErrCodeWrongType FunctionErrorCode = "WRONG_TYPE"

	// ErrCodeDivideByZero indicates an exact-zero divisor.
	ErrCodeDivideByZero FunctionErrorCode = "DIVIDE_BY_ZERO"

	// ErrCodeInvalidParameter indicates a parameter outside its domain.
	ErrCodeInvalidParameter FunctionErrorCode = "INVALID_PARAMETER"

	// ErrCodeArithmetic indicates a failure inside decimal arithmetic.
	ErrCodeArithmetic FunctionErrorCode = "ARITHMETIC"
)

func (e *FunctionError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s(%s): %s", e.Code, e.Function, e.Param, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Function, e.Message)
}

// IsFunctionError reports whether err is or wraps a *FunctionError.
func IsFunctionError(err error) bool {
	var fe *FunctionError
	return errors.As(err, &fe)
}

// IsDivideByZero reports whether err is a divide-by-zero function error.
func IsDivideByZero(err error) bool {
	var fe *FunctionError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeDivideByZero
	}
	return false
}

// RefinementError reports a refinement that cannot be attached to an unknown
// value. Callers that do not understand it must pass it on rather than
// discard it.
type RefinementError struct {
	Code    RefinementErrorCode
	Message string
}

// RefinementErrorCode categorizes refinement errors.
type RefinementErrorCode string

const (
	// ErrCodeNotApplicable indicates a refinement the value's type cannot carry.
	ErrCodeNotApplicable RefinementErrorCode = "NOT_APPLICABLE"

	// ErrCodeEmptyRange indicates bounds that admit no value.
	ErrCodeEmptyRange RefinementErrorCode = "EMPTY_RANGE"

	// ErrCodeKnownValue indicates an attempt to refine a known or null value.
	ErrCodeKnownValue RefinementErrorCode = "KNOWN_VALUE"

	// ErrCodeInvalidLength indicates a negative or inverted length bound.
	ErrCodeInvalidLength RefinementErrorCode = "INVALID_LENGTH"
)

func (e *RefinementError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRefinementError reports whether err is or wraps a *RefinementError.
func IsRefinementError(err error) bool {
	var re *RefinementError
	return errors.As(err, &re)
}
