package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(ErrKindNotFound, "table missing"),
			want: "[not_found] table missing",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindQueryFailed, "run statement", errors.New("syntax error")),
			want: "[query_failed] run statement: syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrKindConnectionFailed, "connect", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrKindConnectionFailed, err.Kind)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrKindInvalidInput, "unknown engine %q", "oracle")
	assert.Equal(t, `[invalid_input] unknown engine "oracle"`, err.Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound, true},
		{"not found wrong kind", New(ErrKindTimeout, "x"), IsNotFound, false},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout, true},
		{"connection failed", New(ErrKindConnectionFailed, "x"), IsConnectionFailed, true},
		{"query failed", New(ErrKindQueryFailed, "x"), IsQueryFailed, true},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput, true},
		{"permission denied", New(ErrKindPermissionDenied, "x"), IsPermissionDenied, true},
		{"plain error", errors.New("x"), IsNotFound, false},
		{"nil error", nil, IsNotFound, false},
		{
			name: "wrapped through fmt",
			err:  fmt.Errorf("outer: %w", New(ErrKindNotFound, "inner")),
			pred: IsNotFound,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.err))
		})
	}
}

func TestErrKind_String(t *testing.T) {
	assert.Equal(t, "not_found", ErrKindNotFound.String())
	assert.Equal(t, "unknown", ErrKind(999).String())
}
