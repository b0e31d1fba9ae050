// Package fetch materializes the remote source files into the local data
// directory ahead of any loading: daily report CSVs across a date range
// plus the fixed time-series and situation-report files. Files already on
// disk are never fetched again, so the loaders always read from
// deterministic local paths.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/laguz/internal/snapshot"
)

// DefaultBaseURL is the raw-content root of the upstream report corpus.
const DefaultBaseURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/"

const dailyReportPath = "csse_covid_19_data/csse_covid_19_daily_reports/"

// staticFiles are the fixed companion datasets fetched alongside the
// daily reports.
var staticFiles = map[string]string{
	"covid_confirmed.csv": "csse_covid_19_data/csse_covid_19_time_series/time_series_19-covid-Confirmed.csv",
	"covid_deaths.csv":    "csse_covid_19_data/csse_covid_19_time_series/time_series_19-covid-Deaths.csv",
	"covid_recovered.csv": "csse_covid_19_data/csse_covid_19_time_series/time_series_19-covid-Recovered.csv",
	"who_sit_rep.csv":     "who_covid_19_situation_reports/who_covid_19_sit_rep_time_series/who_covid_19_sit_rep_time_series.csv",
}

const maxAttempts = 3

// Retriever downloads source files into a data directory.
type Retriever struct {
	baseURL string
	dataDir string
	client  *http.Client
	log     *slog.Logger
}

// NewRetriever creates a Retriever. An empty baseURL falls back to the
// upstream default.
func NewRetriever(baseURL, dataDir string, logger *slog.Logger) *Retriever {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Retriever{
		baseURL: baseURL,
		dataDir: dataDir,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

// Run fetches the static companion files and one daily report per
// calendar date in r. A date whose remote file does not exist (yet) is
// logged and skipped; the corpus is append-only and recent dates often
// trail. Local files that already exist are left untouched.
func (f *Retriever) Run(ctx context.Context, r snapshot.DateRange) error {
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return fmt.Errorf("fetch: create data dir: %w", err)
	}

	for name, remote := range staticFiles {
		if err := f.fetchFile(ctx, remote, name); err != nil {
			return err
		}
	}

	for day := r.Start; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		remote := dailyReportPath + day.Format(snapshot.DateLayout) + ".csv"
		if err := f.fetchFile(ctx, remote, snapshot.FileName(day)); err != nil {
			return err
		}
	}
	return nil
}

// fetchFile downloads one remote file unless its local copy exists.
// Carriage returns are stripped so downstream CSV handling sees uniform
// line endings. The write is atomic: a partial download never becomes a
// local file the loaders would trust.
func (f *Retriever) fetchFile(ctx context.Context, remotePath, localName string) error {
	localPath := filepath.Join(f.dataDir, localName)
	if _, err := os.Stat(localPath); err == nil {
		f.log.Debug("fetch: file exists, skipping", slog.String("path", localPath))
		return nil
	}

	target, err := url.JoinPath(f.baseURL, remotePath)
	if err != nil {
		return fmt.Errorf("fetch: join url: %w", err)
	}

	body, err := f.get(ctx, target)
	if err != nil {
		f.log.Warn("fetch: remote file unavailable",
			slog.String("url", target),
			slog.String("error", err.Error()))
		return nil
	}

	data := strings.ReplaceAll(string(body), "\r", "")
	if err := writeAtomic(localPath, []byte(data)); err != nil {
		return err
	}
	f.log.Info("fetch: file written",
		slog.String("path", localPath),
		slog.Int("bytes", len(data)))
	return nil
}

// get retries transient failures; a definitive not-found stops retrying
// immediately.
func (f *Retriever) get(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, retryable, err := f.getOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, fmt.Errorf("fetch: get %s: %w", target, lastErr)
}

func (f *Retriever) getOnce(ctx context.Context, target string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("status %s", resp.Status)
	default:
		return nil, resp.StatusCode >= 500, fmt.Errorf("status %s", resp.Status)
	}
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".laguz-fetch-*")
	if err != nil {
		return fmt.Errorf("fetch: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("fetch: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fetch: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("fetch: rename: %w", err)
	}
	success = true
	return nil
}
