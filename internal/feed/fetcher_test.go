package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	feedhttp "github.com/ligustah/impfwidget/internal/http"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(t *testing.T, status int, body string) *Fetcher {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return NewFetcher(Options{
		URL:    server.URL,
		Logger: quietLogger(),
	})
}

func TestFetch(t *testing.T) {
	f := newTestFetcher(t, http.StatusOK,
		`[{"cumsum_latest": 100, "cumsum2_latest": 40, "date": "2021-01-05"}]`)

	snap, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if snap.FirstDoseCount != 60 {
		t.Errorf("expected first dose count 60, got %d", snap.FirstDoseCount)
	}
	if snap.SecondDoseCount != 40 {
		t.Errorf("expected second dose count 40, got %d", snap.SecondDoseCount)
	}
	want := time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC)
	if !snap.ReportDate.Equal(want) {
		t.Errorf("expected report date %v, got %v", want, snap.ReportDate)
	}
}

func TestFetchUsesFirstElement(t *testing.T) {
	f := newTestFetcher(t, http.StatusOK, `[
		{"cumsum_latest": 5000000, "cumsum2_latest": 1000000, "date": "2021-04-01T00:00:00Z", "extra": "x"},
		{"cumsum_latest": 1, "cumsum2_latest": 1, "date": "2021-03-31"}
	]`)

	snap, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.FirstDoseCount != 4000000 || snap.SecondDoseCount != 1000000 {
		t.Errorf("unexpected counts %d/%d", snap.FirstDoseCount, snap.SecondDoseCount)
	}
	if snap.ReportDate.Format(DateLayout) != "2021-04-01" {
		t.Errorf("unexpected date %v", snap.ReportDate)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		field  string
	}{
		{"empty array", http.StatusOK, `[]`, KindMissingField, FieldCumulative},
		{"null body", http.StatusOK, `null`, KindMissingField, FieldCumulative},
		{"invalid json", http.StatusOK, `[{"cumsum_latest":`, KindParse, ""},
		{"trailing data", http.StatusOK, `[{"cumsum_latest": 100, "cumsum2_latest": 40, "date": "2021-01-05"}] garbage`, KindParse, ""},
		{"second document", http.StatusOK, `[{"cumsum_latest": 100, "cumsum2_latest": 40, "date": "2021-01-05"}][]`, KindParse, ""},
		{"not an array", http.StatusOK, `{"cumsum_latest": 1}`, KindParse, ""},
		{"element not object", http.StatusOK, `[42]`, KindParse, ""},
		{"missing total", http.StatusOK, `[{"cumsum2_latest": 1, "date": "2021-01-05"}]`, KindMissingField, FieldCumulative},
		{"missing second", http.StatusOK, `[{"cumsum_latest": 1, "date": "2021-01-05"}]`, KindMissingField, FieldCumulativeSecond},
		{"null second", http.StatusOK, `[{"cumsum_latest": 1, "cumsum2_latest": null, "date": "2021-01-05"}]`, KindMissingField, FieldCumulativeSecond},
		{"string count", http.StatusOK, `[{"cumsum_latest": "100", "cumsum2_latest": 1, "date": "2021-01-05"}]`, KindMissingField, FieldCumulative},
		{"missing date", http.StatusOK, `[{"cumsum_latest": 10, "cumsum2_latest": 1}]`, KindMissingField, FieldDate},
		{"bad date", http.StatusOK, `[{"cumsum_latest": 10, "cumsum2_latest": 1, "date": "05/01/2021"}]`, KindParse, FieldDate},
		{"fractional count", http.StatusOK, `[{"cumsum_latest": 10.5, "cumsum2_latest": 1, "date": "2021-01-05"}]`, KindParse, FieldCumulative},
		{"count out of range", http.StatusOK, `[{"cumsum_latest": 1e30, "cumsum2_latest": 1, "date": "2021-01-05"}]`, KindParse, FieldCumulative},
		{"count just out of range", http.StatusOK, `[{"cumsum_latest": 9.3e18, "cumsum2_latest": 1, "date": "2021-01-05"}]`, KindParse, FieldCumulative},
		{"second exceeds total", http.StatusOK, `[{"cumsum_latest": 10, "cumsum2_latest": 11, "date": "2021-01-05"}]`, KindParse, FieldCumulativeSecond},
		{"negative", http.StatusOK, `[{"cumsum_latest": -1, "cumsum2_latest": -2, "date": "2021-01-05"}]`, KindParse, ""},
		{"not found", http.StatusNotFound, ``, KindNetwork, ""},
		{"server error", http.StatusInternalServerError, ``, KindNetwork, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, tt.status, tt.body)

			_, err := f.Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T: %v", err, err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s (%v)", tt.kind, fe.Kind, err)
			}
			if fe.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, fe.Field)
			}
		})
	}
}

func TestParseTrailingWhitespace(t *testing.T) {
	body := "[{\"cumsum_latest\": 100, \"cumsum2_latest\": 40, \"date\": \"2021-01-05\"}]\n\t \n"
	snap, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if snap.FirstDoseCount != 60 || snap.SecondDoseCount != 40 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestParseOutOfRange(t *testing.T) {
	_, err := Parse(strings.NewReader(`[{"cumsum_latest": 1e30, "cumsum2_latest": 1, "date": "2021-01-05"}]`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected out of range error, got %v", err)
	}
	if strings.Contains(err.Error(), "whole number") {
		t.Errorf("large count misreported as fractional: %v", err)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	f := NewFetcher(Options{URL: url, Logger: quietLogger()})
	_, err := f.Fetch(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestFetchWrapsHTTPSentinels(t *testing.T) {
	f := newTestFetcher(t, http.StatusNotFound, ``)

	_, err := f.Fetch(context.Background())
	if !errors.Is(err, feedhttp.ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newTestFetcher(t, http.StatusOK,
			`[{"cumsum_latest": 100, "cumsum2_latest": 40, "date": "2021-01-05"}]`)

		res := f.Load(context.Background())
		if !res.OK() || res.Err != nil {
			t.Fatalf("expected ok result, got %v (%v)", res.Status, res.Err)
		}
		if res.Snapshot.FirstDoseCount != 60 {
			t.Errorf("expected 60, got %d", res.Snapshot.FirstDoseCount)
		}
	})

	t.Run("parse failure", func(t *testing.T) {
		f := newTestFetcher(t, http.StatusOK, `[]`)

		res := f.Load(context.Background())
		if res.Status != StatusNotFound {
			t.Errorf("expected notfound, got %v", res.Status)
		}
		if !res.Snapshot.IsZero() {
			t.Errorf("expected empty snapshot, got %+v", res.Snapshot)
		}
		if res.Err == nil {
			t.Error("expected error to be kept")
		}
	})

	t.Run("network failure", func(t *testing.T) {
		f := newTestFetcher(t, http.StatusBadGateway, ``)

		res := f.Load(context.Background())
		if res.Status != StatusOffline {
			t.Errorf("expected offline, got %v", res.Status)
		}
	})
}

type stubGetter struct {
	body string
	err  error
	urls []string
}

func (s *stubGetter) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestFetchSingleAttempt(t *testing.T) {
	stub := &stubGetter{err: errors.New("connection refused")}
	f := NewFetcher(Options{URL: "http://feed.invalid/data.json", Client: stub, Logger: quietLogger()})

	res := f.Load(context.Background())
	if res.Status != StatusOffline {
		t.Errorf("expected offline, got %v", res.Status)
	}
	if len(stub.urls) != 1 {
		t.Errorf("expected exactly 1 request, got %d", len(stub.urls))
	}
}

func TestNewFetcherDefaults(t *testing.T) {
	f := NewFetcher(Options{})
	if f.URL() != DefaultURL {
		t.Errorf("expected default URL, got %s", f.URL())
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := missingField(FieldDate, nil)
	if got := err.Error(); got != "feed: missing-field (date)" {
		t.Errorf("unexpected message %q", got)
	}

	cause := errors.New("boom")
	err = networkError(cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to unwrap")
	}
	if !strings.HasSuffix(err.Error(), ": boom") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusOK:       "ok",
		StatusNotFound: "notfound",
		StatusOffline:  "offline",
		StatusError:    "error",
		Status(1):      "unknown",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
