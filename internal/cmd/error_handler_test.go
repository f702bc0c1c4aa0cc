package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/botbridge/botbridge-cli/internal/api"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "nil",
			err:  nil,
			want: nil,
		},
		{
			name: "rate limit",
			err:  &api.RateLimitError{RetryAfter: 2 * time.Second},
			want: []string{"Rate limit exceeded", "Wait a few seconds"},
		},
		{
			name: "circuit breaker",
			err:  &api.CircuitBreakerError{},
			want: []string{"circuit breaker open", "Wait 30 seconds"},
		},
		{
			name: "auth",
			err:  &api.AuthError{Reason: "token expired"},
			want: []string{"Authentication failed: token expired", "bb auth login"},
		},
		{
			name: "api 401",
			err:  &api.APIError{StatusCode: 401, Body: "unauthorized"},
			want: []string{"HTTP 401", "bb auth login"},
		},
		{
			name: "api 404",
			err:  &api.APIError{StatusCode: 404, Body: "no such thread"},
			want: []string{"HTTP 404", "doesn't exist"},
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("open thread: %w", &api.APIError{StatusCode: 500, Body: "boom"}),
			want: []string{"HTTP 500", "not your fault"},
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:443: connection refused"),
			want: []string{"Connection refused", "bb auth status"},
		},
		{
			name: "generic",
			err:  errors.New("weird failure"),
			want: []string{"Error: weird failure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HandleError(tt.err)
			if tt.err == nil {
				if got != "" {
					t.Errorf("HandleError(nil) = %q, want empty", got)
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("HandleError(%v) missing %q:\n%s", tt.err, want, got)
				}
			}
		})
	}
}
