package fact

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a reference is absent from a Graph.
var ErrNotFound = errors.New("fact not found")

// DataErrorCode identifies the kind of malformed fact data.
type DataErrorCode string

const (
	// CodeUnsupportedFieldType indicates a field value that is not a string,
	// number, or boolean.
	CodeUnsupportedFieldType DataErrorCode = "UnsupportedFieldType"

	// CodeInvalidFieldValue indicates a value of a supported type that has no
	// canonical encoding (NaN, Inf).
	CodeInvalidFieldValue DataErrorCode = "InvalidFieldValue"

	// CodeDuplicateName indicates two fields or two predecessors sharing a name.
	CodeDuplicateName DataErrorCode = "DuplicateName"

	// CodeMalformed indicates wire data that cannot be decoded into a fact.
	CodeMalformed DataErrorCode = "Malformed"
)

// DataError reports a fact that cannot be constructed.
type DataError struct {
	Code    DataErrorCode
	Name    string // field or role name, if any
	Message string
}

func (e *DataError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDataError reports whether err is a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsUnsupportedFieldType reports whether err is an UnsupportedFieldType error.
func IsUnsupportedFieldType(err error) bool {
	var de *DataError
	return errors.As(err, &de) && de.Code == CodeUnsupportedFieldType
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func unsupported(name string, v any) *DataError {
	return &DataError{
		Code:    CodeUnsupportedFieldType,
		Name:    name,
		Message: fmt.Sprintf("unsupported field value type %T", v),
	}
}

func malformed(format string, args ...any) *DataError {
	return &DataError{Code: CodeMalformed, Message: fmt.Sprintf(format, args...)}
}
