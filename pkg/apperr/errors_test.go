package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatusAndCode(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindEmptyFile, "CSV_EMPTY", http.StatusBadRequest},
		{KindMissingHeaders, "CSV_MISSING_HEADERS", http.StatusBadRequest},
		{KindCSVValidation, "CSV_VALIDATION_ERROR", http.StatusBadRequest},
		{KindMalformedInput, "CSV_PARSE_ERROR", http.StatusBadRequest},
		{KindNotFound, "NOT_FOUND", http.StatusNotFound},
		{KindForbidden, "FORBIDDEN", http.StatusForbidden},
		{KindInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{KindConflict, "CONFLICT", http.StatusConflict},
		{KindTooManyRequests, "TOO_MANY_REQUESTS", http.StatusTooManyRequests},
		{KindInternal, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := tt.kind.Code(); got != tt.code {
				t.Errorf("Code() = %q, want %q", got, tt.code)
			}
			if got := tt.kind.HTTPStatus(); got != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("upload: %w", NotFound("Upload", 7))
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected NotFound, got %s", KindOf(err))
	}
	if !Is(err, KindNotFound) {
		t.Fatalf("Is should match wrapped kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors must map to internal")
	}
}

func TestDetailsPayload(t *testing.T) {
	mh := MissingHeaders([]string{"nombre", "ciudad"})
	d, ok := mh.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", mh.Details())
	}
	if got := d["missingHeaders"].([]string); len(got) != 2 || got[0] != "nombre" {
		t.Fatalf("unexpected missing headers %v", got)
	}

	rows := []RowError{{Row: 3, Field: "telefono", Value: "45a", Messages: []string{"x"}}}
	v := CSVValidation(rows)
	d = v.Details().(map[string]any)
	if got := d["errors"].([]RowError); len(got) != 1 || got[0].Row != 3 {
		t.Fatalf("unexpected rows %v", got)
	}

	if EmptyFile().Details() != nil {
		t.Fatalf("empty file carries no details")
	}
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := MalformedInput(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause should be reachable through Unwrap")
	}
}
