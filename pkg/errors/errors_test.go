// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and code lookup through chains

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/dataprov/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "object not found",
			wantStr: "[NOT_FOUND] object not found",
		},
		{
			name:    "missing_hash_reference",
			code:    errors.ErrMissingHashReference,
			message: "no hash configured for test.txt",
			wantStr: "[MISSING_HASH_REFERENCE] no hash configured for test.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}
			if err.Details == nil {
				t.Error("New() details should be initialized")
			}
			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := stderrors.New("connection reset")

	err := errors.Wrapf(base, errors.ErrTransport, "loading %s", "gs://b/o")
	if err.Error() != "[TRANSPORT] loading gs://b/o: connection reset" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !stderrors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}

	if errors.Wrap(nil, errors.ErrTransport, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrIntegrityMismatch, "hash mismatch").
		WithDetail("path", "root/test.txt").
		WithDetails(map[string]interface{}{"expected": "abc", "actual": "def"})

	if err.Details["path"] != "root/test.txt" {
		t.Errorf("WithDetail() path = %v", err.Details["path"])
	}
	if err.Details["expected"] != "abc" || err.Details["actual"] != "def" {
		t.Errorf("WithDetails() = %v", err.Details)
	}
	if errors.GetErrorDetails(err)["path"] != "root/test.txt" {
		t.Error("GetErrorDetails() should expose details")
	}
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrNotFound, "error 1")
	err2 := errors.New(errors.ErrNotFound, "error 2")
	err3 := errors.New(errors.ErrInternal, "error 3")

	t.Run("same_code_is_equal", func(t *testing.T) {
		if !stderrors.Is(err1, err2) {
			t.Error("errors.Is() should match on code")
		}
	})

	t.Run("different_code_not_equal", func(t *testing.T) {
		if err1.Is(err3) {
			t.Error("Is() should return false for different codes")
		}
	})
}

func TestIsErrorCode(t *testing.T) {
	inner := errors.New(errors.ErrNotFound, "object missing")
	outer := errors.Wrap(inner, errors.ErrDatasetNotAvailable, "no tier available")

	tests := []struct {
		name     string
		err      error
		code     errors.ErrorCode
		expected bool
	}{
		{"matching_code", inner, errors.ErrNotFound, true},
		{"different_code", inner, errors.ErrInternal, false},
		{"outer_code", outer, errors.ErrDatasetNotAvailable, true},
		{"inner_code_through_chain", outer, errors.ErrNotFound, true},
		{"through_fmt_wrap", fmt.Errorf("context: %w", outer), errors.ErrNotFound, true},
		{"non_dataprov_error", stderrors.New("standard error"), errors.ErrNotFound, false},
		{"nil_error", nil, errors.ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.IsErrorCode(tt.err, tt.code); got != tt.expected {
				t.Errorf("IsErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errors.ErrorCode
	}{
		{"dataprov_error", errors.New(errors.ErrArchive, "bad archive"), errors.ErrArchive},
		{"outermost_wins", errors.Wrap(errors.New(errors.ErrNotFound, "x"), errors.ErrTransport, "y"), errors.ErrTransport},
		{"standard_error", stderrors.New("standard error"), errors.ErrUnknown},
		{"nil_error", nil, errors.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}
