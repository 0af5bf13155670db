package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const feedBody = `[{"cumsum_latest":100,"cumsum2_latest":40,"date":"2021-01-05"}]`

// setupCLI isolates the command from the process environment and captures
// its output.
func setupCLI(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()

	prevEnv, prevOut, prevErr := dotEnvPath, stdout, stderr
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	dotEnvPath, stdout, stderr = "", out, errOut
	t.Cleanup(func() {
		dotEnvPath, stdout, stderr = prevEnv, prevOut, prevErr
	})

	t.Setenv("IMPFWIDGET_CACHE_URL", "")
	t.Setenv("IMPFWIDGET_LOG_LEVEL", "error")
	return out, errOut
}

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, ExitInvalidArgs},
		{"help", []string{"help"}, ExitSuccess},
		{"unknown", []string{"upload"}, ExitInvalidArgs},
		{"command help", []string{"render", "-h"}, ExitSuccess},
		{"bad flag", []string{"fetch", "-bogus"}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut := setupCLI(t)
			if got := run(tt.args); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
			if !strings.Contains(errOut.String(), "Usage:") {
				t.Errorf("expected usage on stderr, got %q", errOut.String())
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	out, _ := setupCLI(t)
	srv := feedServer(t, http.StatusOK, feedBody)

	if code := run([]string{"render", "-url", srv.URL}); code != ExitSuccess {
		t.Fatalf("render exit code %d", code)
	}

	for _, want := range []string{"Impffortschritt", "05.01.2021", "60↑ERSTIMPFUNG", "40↑ZWEITIMPFUNG"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRenderJSON(t *testing.T) {
	out, _ := setupCLI(t)
	srv := feedServer(t, http.StatusOK, feedBody)

	code := run([]string{"render", "-url", srv.URL, "-format", "json", "-family", "small"})
	if code != ExitSuccess {
		t.Fatalf("render exit code %d", code)
	}

	var wdg struct {
		Family string `json:"family"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal(out.Bytes(), &wdg); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if wdg.Family != "small" || wdg.Status != 200 {
		t.Errorf("unexpected widget %+v", wdg)
	}
}

func TestRenderFetchFailure(t *testing.T) {
	out, _ := setupCLI(t)
	srv := feedServer(t, http.StatusOK, `[]`)

	if code := run([]string{"render", "-url", srv.URL}); code != ExitSuccess {
		t.Fatalf("render should draw placeholders, got exit code %d", code)
	}
	if !strings.Contains(out.String(), "n/v") {
		t.Errorf("expected placeholder in output:\n%s", out.String())
	}
}

func TestRenderInvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"render", "-format", "yaml"}},
		{"family", []string{"render", "-family", "huge"}},
		{"url", []string{"render", "-url", "ftp://example.com/feed"}},
		{"cache", []string{"render", "-from-cache"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCLI(t)
			if code := run(tt.args); code != ExitInvalidArgs {
				t.Errorf("run(%v) = %d, want %d", tt.args, code, ExitInvalidArgs)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	out, _ := setupCLI(t)
	srv := feedServer(t, http.StatusOK, feedBody)

	if code := run([]string{"fetch", "-url", srv.URL}); code != ExitSuccess {
		t.Fatalf("fetch exit code %d", code)
	}

	var snap snapshotOutput
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := snapshotOutput{FirstDoseCount: 60, SecondDoseCount: 40, ReportDate: "2021-01-05"}
	if snap != want {
		t.Errorf("got %+v, want %+v", snap, want)
	}
}

func TestFetchFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, ""},
		{"server error", http.StatusInternalServerError, ""},
		{"missing field", http.StatusOK, `[{"cumsum_latest":1}]`},
		{"garbage", http.StatusOK, `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := setupCLI(t)
			srv := feedServer(t, tt.status, tt.body)

			if code := run([]string{"fetch", "-url", srv.URL}); code != ExitFetchFailed {
				t.Errorf("exit code %d, want %d", code, ExitFetchFailed)
			}
			if out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
			if !strings.Contains(errOut.String(), "feed:") {
				t.Errorf("expected fetch error on stderr, got %q", errOut.String())
			}
		})
	}
}

func TestFetchSaveRequiresCache(t *testing.T) {
	setupCLI(t)
	srv := feedServer(t, http.StatusOK, feedBody)

	if code := run([]string{"fetch", "-url", srv.URL, "-save"}); code != ExitInvalidArgs {
		t.Errorf("exit code %d, want %d", code, ExitInvalidArgs)
	}
}

func TestFetchSaveThenRenderFromCache(t *testing.T) {
	out, _ := setupCLI(t)
	t.Setenv("IMPFWIDGET_CACHE_URL", "file://"+t.TempDir())

	srv := feedServer(t, http.StatusOK, feedBody)
	if code := run([]string{"fetch", "-url", srv.URL, "-save"}); code != ExitSuccess {
		t.Fatalf("fetch exit code %d", code)
	}
	srv.Close()

	out.Reset()
	if code := run([]string{"render", "-url", srv.URL, "-from-cache"}); code != ExitSuccess {
		t.Fatalf("render exit code %d", code)
	}
	if !strings.Contains(out.String(), "60↑ERSTIMPFUNG") {
		t.Errorf("expected archived snapshot in output:\n%s", out.String())
	}
}

func TestRenderFromEmptyCache(t *testing.T) {
	out, _ := setupCLI(t)
	t.Setenv("IMPFWIDGET_CACHE_URL", "mem://")

	if code := run([]string{"render", "-from-cache"}); code != ExitSuccess {
		t.Fatalf("render exit code %d", code)
	}
	if !strings.Contains(out.String(), "n/v") {
		t.Errorf("expected placeholder in output:\n%s", out.String())
	}
}

func TestServeInvalidConfig(t *testing.T) {
	setupCLI(t)

	if code := run([]string{"serve", "-url", "not a url"}); code != ExitInvalidArgs {
		t.Errorf("exit code %d, want %d", code, ExitInvalidArgs)
	}
}
