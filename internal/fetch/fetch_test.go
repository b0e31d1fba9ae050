package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/laguz/internal/snapshot"
	"github.com/starford/laguz/internal/testutil"
)

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse(snapshot.DateLayout, date)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRun_FetchesAndStripsCR(t *testing.T) {
	var dailyHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "01-22-2020.csv" {
			dailyHits.Add(1)
			_, _ = w.Write([]byte("a,b\r\n1,2\r\n"))
			return
		}
		_, _ = w.Write([]byte("static\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewRetriever(srv.URL+"/", dir, testutil.DiscardLogger())

	r := snapshot.DateRange{Start: day(t, "01-22-2020"), End: day(t, "01-22-2020")}
	if err := f.Run(context.Background(), r); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "csse_daily_01-22-2020.csv"))
	if err != nil {
		t.Fatalf("daily file not written: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("content = %q, want carriage returns stripped", data)
	}

	for name := range staticFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("static file %s not written", name)
		}
	}

	// Second run must not refetch anything already on disk.
	if err := f.Run(context.Background(), r); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := dailyHits.Load(); got != 1 {
		t.Errorf("daily report fetched %d times, want 1", got)
	}
}

func TestRun_MissingRemoteDateTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "01-23-2020.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("data\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewRetriever(srv.URL+"/", dir, testutil.DiscardLogger())

	r := snapshot.DateRange{Start: day(t, "01-22-2020"), End: day(t, "01-23-2020")}
	if err := f.Run(context.Background(), r); err != nil {
		t.Fatalf("Run must tolerate missing remote dates: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "csse_daily_01-22-2020.csv")); err != nil {
		t.Error("01-22-2020 should have been written")
	}
	if _, err := os.Stat(filepath.Join(dir, "csse_daily_01-23-2020.csv")); err == nil {
		t.Error("01-23-2020 should not exist locally")
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewRetriever(srv.URL+"/", t.TempDir(), testutil.DiscardLogger())
	body, err := f.get(context.Background(), srv.URL+"/file.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestGet_NoRetryOnNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewRetriever(srv.URL+"/", t.TempDir(), testutil.DiscardLogger())
	if _, err := f.get(context.Background(), srv.URL+"/gone.csv"); err == nil {
		t.Fatal("expected error")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1 (404 is definitive)", hits.Load())
	}
}
