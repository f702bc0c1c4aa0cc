package cmd

import (
	"context"
	"strings"
	"testing"
)

func TestJSONConflictsWithExplicitOutput(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--json", "--output", "text"})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !strings.Contains(err.Error(), "--json conflicts with --output") {
		t.Errorf("error = %v", err)
	}
}

func TestJQForcesJSONOutput(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/users", jsonResponse(200, `[{"id": "a-1", "name": "Bea Ops", "email": "bea@example.com"}]`))

	setupTestEnvWithHandler(t, handler)

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"agents", "list", "--jq", ".[0].name"}); err != nil {
			t.Errorf("agents list --jq failed: %v", err)
		}
	})

	if strings.TrimSpace(output) != `"Bea Ops"` {
		t.Errorf("output = %q, want jq projection", strings.TrimSpace(output))
	}
}

func TestJQConflictsWithTextOutput(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"agents", "list", "--jq", ".", "--output", "text"})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !strings.Contains(err.Error(), "require --output json") {
		t.Errorf("error = %v", err)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"chatz"})
	})
	if err == nil {
		t.Fatal("expected unknown command error")
	}
	if !strings.Contains(stderr, "Did you mean") || !strings.Contains(stderr, "chats") {
		t.Errorf("stderr = %s, want did-you-mean for chats", stderr)
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	var err error
	stderr := captureStderr(t, func() {
		err = Execute(context.Background(), []string{"version", "--chek"})
	})
	if err == nil {
		t.Fatal("expected unknown flag error")
	}
	if !strings.Contains(stderr, `"--check"`) {
		t.Errorf("stderr = %s, want suggestion for --check", stderr)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--output", "yaml"})
	if err == nil {
		t.Fatal("expected invalid output format error")
	}
	if !strings.Contains(err.Error(), "invalid output format") {
		t.Errorf("error = %v", err)
	}
}

func TestNormalizeOutputFormat(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"json", "json"},
		{"ndjson", "jsonl"},
		{" text ", "text"},
	}
	for _, tt := range tests {
		if got := normalizeOutputFormat(tt.in); got != tt.want {
			t.Errorf("normalizeOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		t.Setenv("BOTBRIDGE_TEST_BOOL", tt.value)
		if got := parseBoolEnv("BOTBRIDGE_TEST_BOOL"); got != tt.want {
			t.Errorf("parseBoolEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestNegativeRetryOverrideRejected(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	err := Execute(context.Background(), []string{"version", "--max-rate-limit-retries", "-1"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "must be >= 0") {
		t.Errorf("error = %v", err)
	}
}

func TestClosest(t *testing.T) {
	tests := []struct {
		unknown    string
		candidates []string
		want       string
	}{
		{"chatz", []string{"chats", "agents", "version"}, "chats"},
		{"--chek", []string{"--check", "--output"}, "--check"},
		{"zzzzzzzz", []string{"chats", "agents"}, ""},
		{"", []string{"chats"}, ""},
	}
	for _, tt := range tests {
		if got := closest(tt.unknown, tt.candidates); got != tt.want {
			t.Errorf("closest(%q) = %q, want %q", tt.unknown, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"chats", "chats", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
