package cmd

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/botbridge/botbridge-cli/internal/update"
)

func TestVersionCommand(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	output := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"version"}); err != nil {
			t.Errorf("version failed: %v", err)
		}
	})

	if !strings.Contains(output, "botbridge-cli version dev") {
		t.Errorf("output = %s", output)
	}
}

func TestVersionCheckReportsUpdate(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	releases := httptest.NewServer(jsonResponse(200, `{"tag_name": "v9.9.9", "html_url": "https://example.com/release"}`))
	t.Cleanup(releases.Close)

	origURL := update.ReleasesURL
	update.ReleasesURL = releases.URL
	origVersion := version
	version = "1.0.0"
	t.Cleanup(func() {
		update.ReleasesURL = origURL
		version = origVersion
	})

	stderr := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			if err := Execute(context.Background(), []string{"version", "--check"}); err != nil {
				t.Errorf("version --check failed: %v", err)
			}
		})
	})

	if !strings.Contains(stderr, "Update available: 1.0.0 -> 9.9.9") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestVersionCheckSilentOnDevBuild(t *testing.T) {
	setupTestEnvWithHandler(t, newRouteHandler())

	stderr := captureStderr(t, func() {
		_ = captureStdout(t, func() {
			if err := Execute(context.Background(), []string{"version", "--check"}); err != nil {
				t.Errorf("version --check failed: %v", err)
			}
		})
	})

	if strings.Contains(stderr, "Update available") {
		t.Errorf("dev builds should not report updates: %s", stderr)
	}
}
