// Package apperr defines the error kinds surfaced to API clients.
//
// Every failure that crosses the HTTP boundary is an *Error carrying a Kind.
// Handlers match it with errors.As and render Kind.Code() plus any payload
// (missing headers, per-row violations) verbatim.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindEmptyFile
	KindMissingHeaders
	KindCSVValidation
	KindMalformedInput
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindInvalidCredentials
	KindConflict
	KindValidation
	KindFileNotProvided
	KindInvalidFileType
	KindFileTooLarge
	KindTooManyRequests
)

// Code returns the machine-readable code sent to clients.
func (k Kind) Code() string {
	switch k {
	case KindEmptyFile:
		return "CSV_EMPTY"
	case KindMissingHeaders:
		return "CSV_MISSING_HEADERS"
	case KindCSVValidation:
		return "CSV_VALIDATION_ERROR"
	case KindMalformedInput:
		return "CSV_PARSE_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindConflict:
		return "CONFLICT"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindFileNotProvided:
		return "FILE_NOT_PROVIDED"
	case KindInvalidFileType:
		return "INVALID_FILE_TYPE"
	case KindFileTooLarge:
		return "FILE_TOO_LARGE"
	case KindTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

func (k Kind) String() string {
	return k.Code()
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindEmptyFile, KindMissingHeaders, KindCSVValidation, KindMalformedInput,
		KindValidation, KindFileNotProvided, KindInvalidFileType, KindFileTooLarge:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RowError is one field violation of one CSV row. Row counts the header as
// row 1, so the first data row is row 2.
type RowError struct {
	Row      int      `json:"row"`
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Messages []string `json:"errors"`
}

// Error is the single error type returned across package boundaries.
type Error struct {
	Kind           Kind
	Message        string
	MissingHeaders []string
	Rows           []RowError
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Details returns the payload rendered under error.details, or nil.
func (e *Error) Details() any {
	switch {
	case len(e.MissingHeaders) > 0:
		return map[string]any{"missingHeaders": e.MissingHeaders}
	case e.Kind == KindCSVValidation:
		return map[string]any{"errors": e.Rows}
	}
	return nil
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

func EmptyFile() *Error {
	return New(KindEmptyFile, "El archivo está vacío")
}

func MissingHeaders(missing []string) *Error {
	return &Error{
		Kind:           KindMissingHeaders,
		Message:        "Faltan los siguientes headers en el archivo CSV: " + strings.Join(missing, ", "),
		MissingHeaders: missing,
	}
}

func CSVValidation(rows []RowError) *Error {
	return &Error{
		Kind:    KindCSVValidation,
		Message: "El archivo CSV contiene errores de validación",
		Rows:    rows,
	}
}

func MalformedInput(err error) *Error {
	return Wrap(KindMalformedInput, err, "No se pudo leer el archivo")
}

func NotFound(resource string, id any) *Error {
	return New(KindNotFound, "%s con identificador '%v' no encontrado", resource, id)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "No tienes permisos para realizar esta acción"
	}
	return New(KindForbidden, "%s", message)
}
