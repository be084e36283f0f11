package vision

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "plain not found",
			err:  errors.New("session not found"),
			want: true,
		},
		{
			name: "snake case code",
			err:  errors.New("vision error: not_found"),
			want: true,
		},
		{
			name: "mixed case",
			err:  errors.New("Not Found"),
			want: true,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("open session: %w", errors.New("model not_found")),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
