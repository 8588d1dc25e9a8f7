// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and utility functions

package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "key_not_found_error",
			code:    errors.ErrKeyNotFound,
			message: "no value at tool.tyranno.data.vr",
			wantStr: "[KEY_NOT_FOUND] no value at tool.tyranno.data.vr",
		},
		{
			name:    "malformed_block_error",
			code:    errors.ErrMalformedBlock,
			message: "file ended inside a block",
			wantStr: "[MALFORMED_BLOCK] file ended inside a block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}

			if err.Message != tt.message {
				t.Errorf("New() message = %q, want %q", err.Message, tt.message)
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

func TestNewf(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		format  string
		args    []interface{}
		wantMsg string
	}{
		{
			name:    "format_with_string",
			code:    errors.ErrInvalidKey,
			format:  "invalid key: %q",
			args:    []interface{}{"a.b"},
			wantMsg: `invalid key: "a.b"`,
		},
		{
			name:    "format_with_multiple_args",
			code:    errors.ErrFileWrite,
			format:  "cannot write %s with mode %o",
			args:    []interface{}{"file.txt", 0644},
			wantMsg: "cannot write file.txt with mode 644",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.Newf(tt.code, tt.format, tt.args...)

			if err.Message != tt.wantMsg {
				t.Errorf("Newf() message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrInternal, "internal error")

		if err.Code != errors.ErrInternal {
			t.Errorf("Wrap() code = %v, want %v", err.Code, errors.ErrInternal)
		}

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}

		wantStr := "[INTERNAL] internal error: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		err := errors.Wrap(nil, errors.ErrInternal, "internal error")
		if err != nil {
			t.Error("Wrap(nil) should return nil")
		}
	})

	t.Run("wrapf_formats_message", func(t *testing.T) {
		err := errors.Wrapf(baseErr, errors.ErrFileRead, "cannot read %s", "a.txt")
		wantStr := "[FILE_READ] cannot read a.txt: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrKeyNotFound, "not found").
		WithDetail("path", "a.b.c").
		WithDetail("segment", "b")

	if err.Details["path"] != "a.b.c" {
		t.Errorf("WithDetail() path = %v, want %v", err.Details["path"], "a.b.c")
	}

	if err.Details["segment"] != "b" {
		t.Errorf("WithDetail() segment = %v, want %v", err.Details["segment"], "b")
	}
}

func TestWithDetails(t *testing.T) {
	details := map[string]interface{}{
		"file": "README.md",
		"line": 12,
		"expr": "~.version",
	}

	err := errors.New(errors.ErrExpression, "cannot evaluate").
		WithDetails(details)

	for k, v := range details {
		if err.Details[k] != v {
			t.Errorf("WithDetails() %s = %v, want %v", k, err.Details[k], v)
		}
	}
}

func TestDescribe(t *testing.T) {
	t.Run("without_details", func(t *testing.T) {
		err := &errors.Error{Code: errors.ErrHTTP, Message: "status 404"}
		if got := err.Describe(); got != "[HTTP] status 404" {
			t.Errorf("Describe() = %q", got)
		}
	})

	t.Run("details_sorted_by_key", func(t *testing.T) {
		err := errors.New(errors.ErrMalformedBlock, "marker inside rewind").
			WithDetail("line", 7).
			WithDetail("file", "a.py")
		want := "[MALFORMED_BLOCK] marker inside rewind (file=a.py, line=7)"
		if got := err.Describe(); got != want {
			t.Errorf("Describe() = %q, want %q", got, want)
		}
	})
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrKeyNotFound, "error 1")
	err2 := errors.New(errors.ErrKeyNotFound, "error 2")
	err3 := errors.New(errors.ErrInternal, "error 3")

	t.Run("same_code_is_equal", func(t *testing.T) {
		if !err1.Is(err2) {
			t.Error("Is() should return true for same code")
		}
	})

	t.Run("different_code_not_equal", func(t *testing.T) {
		if err1.Is(err3) {
			t.Error("Is() should return false for different codes")
		}
	})

	t.Run("works_with_errors_Is", func(t *testing.T) {
		if !stderrors.Is(err1, err2) {
			t.Error("errors.Is() should work with Error")
		}
	})

	t.Run("works_through_join", func(t *testing.T) {
		joined := stderrors.Join(err3, err1)
		if !stderrors.Is(joined, err2) {
			t.Error("errors.Is() should find a code inside errors.Join")
		}
	})
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     errors.ErrorCode
		expected bool
	}{
		{
			name:     "matching_code",
			err:      errors.New(errors.ErrKeyNotFound, "not found"),
			code:     errors.ErrKeyNotFound,
			expected: true,
		},
		{
			name:     "different_code",
			err:      errors.New(errors.ErrKeyNotFound, "not found"),
			code:     errors.ErrInternal,
			expected: false,
		},
		{
			name:     "wrapped_error",
			err:      errors.Wrap(stderrors.New("base"), errors.ErrFileRead, "denied"),
			code:     errors.ErrFileRead,
			expected: true,
		},
		{
			name:     "standard_error",
			err:      stderrors.New("standard error"),
			code:     errors.ErrKeyNotFound,
			expected: false,
		},
		{
			name:     "nil_error",
			err:      nil,
			code:     errors.ErrKeyNotFound,
			expected: false,
		},
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
		{
			name:     "coded_error",
			err:      errors.New(errors.ErrUnknownProfile, "no comment syntax for .xyz"),
			expected: errors.ErrUnknownProfile,
		},
		{
			name:     "standard_error",
			err:      stderrors.New("standard error"),
			expected: errors.ErrUnknown,
		},
		{
			name:     "nil_error",
			err:      nil,
			expected: errors.ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := errors.New(errors.ErrFunction, "bad args").WithDetail("function", "pep440")
	if got := errors.GetErrorDetails(err); got["function"] != "pep440" {
		t.Errorf("GetErrorDetails() = %v", got)
	}
	if got := errors.GetErrorDetails(stderrors.New("plain")); got != nil {
		t.Errorf("GetErrorDetails() on plain error = %v, want nil", got)
	}
}

func TestErrorChaining(t *testing.T) {
	// Create a chain of errors
	rootCause := stderrors.New("root cause")
	fileErr := errors.Wrap(rootCause, errors.ErrFileRead, "cannot read file")
	configErr := errors.Wrap(fileErr, errors.ErrConfigLoad, "failed to load config")

	t.Run("top_level_has_correct_code", func(t *testing.T) {
		if !errors.IsErrorCode(configErr, errors.ErrConfigLoad) {
			t.Error("Top level should have ErrConfigLoad code")
		}
	})

	t.Run("can_find_middle_error", func(t *testing.T) {
		var tyrErr *errors.Error
		if stderrors.As(configErr.Unwrap(), &tyrErr) {
			if !errors.IsErrorCode(tyrErr, errors.ErrFileRead) {
				t.Error("Middle error should have ErrFileRead code")
			}
		}
	})

	t.Run("can_find_root_cause", func(t *testing.T) {
		if !stderrors.Is(configErr, rootCause) {
			t.Error("Should find root cause with errors.Is")
		}
	})
}

func TestFind(t *testing.T) {
	inner := errors.New(errors.ErrHTTP, "bad gateway")
	wrapped := fmt.Errorf("fetching: %w", inner)

	found, ok := errors.Find(wrapped)
	if !ok || found != inner {
		t.Errorf("Find() = %v, %v; want the inner error", found, ok)
	}
	if _, ok := errors.Find(stderrors.New("plain")); ok {
		t.Error("Find() on plain error should report false")
	}
}

func TestJoin(t *testing.T) {
	if err := errors.Join(nil, nil); err != nil {
		t.Errorf("Join(nil, nil) = %v, want nil", err)
	}

	joined := errors.Join(
		errors.New(errors.ErrMalformedBlock, "a.py"),
		nil,
		errors.New(errors.ErrFileWrite, "b.py"),
	)
	if !errors.IsErrorCode(joined, errors.ErrMalformedBlock) {
		t.Error("joined error should match the first code")
	}
	if !stderrors.Is(joined, errors.New(errors.ErrFileWrite, "")) {
		t.Error("joined error should match the second code with errors.Is")
	}
	if !strings.Contains(joined.Error(), "b.py") {
		t.Errorf("joined message %q should mention b.py", joined.Error())
	}
}
