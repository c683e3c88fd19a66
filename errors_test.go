package runtest

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	cause := errors.New("fork/exec ./tsquare: no such file or directory")
	err := NewRuntimeError(cause)

	assert.Equal(t, "runtime error: fork/exec ./tsquare: no such file or directory", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsRuntimeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "runtime error", err: NewRuntimeError(errors.New("boom")), want: true},
		{name: "wrapped runtime error", err: fmt.Errorf("failed to start: %w", NewRuntimeError(errors.New("boom"))), want: true},
		{name: "joined runtime error", err: errors.Join(errors.New("other"), NewRuntimeError(errors.New("boom"))), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRuntimeError(tt.err))
		})
	}
}
