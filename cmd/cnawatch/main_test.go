package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cnawatch/cnawatch/internal/compute"
	"github.com/cnawatch/cnawatch/internal/config"
	"github.com/cnawatch/cnawatch/internal/report"
)

// testConfig points every path at a temp dir and the list fetch at a closed
// port, so each test opts in to the collaborators it wants.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RecordsDir = t.TempDir()
	cfg.OutputPath = filepath.Join(t.TempDir(), "report", "anomaly_data.json")
	cfg.CNAListURL = "http://127.0.0.1:1/CNAsList.json"
	cfg.FetchTimeout = 2 * time.Second
	return cfg
}

func writeRecord(t *testing.T, dir, name, orgID, short string, published time.Time) {
	t.Helper()
	doc := fmt.Sprintf(`{
  "dataType": "CVE_RECORD",
  "cveMetadata": {
    "cveId": "CVE-2025-20001",
    "assignerOrgId": %q,
    "datePublished": %q
  },
  "containers": {
    "cna": {
      "providerMetadata": {"shortName": %q}
    }
  }
}`, orgID, published.Format("2006-01-02T15:04:05")+"Z", short)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o600); err != nil {
		t.Fatalf("write record: %v", err)
	}
}

// recentPublish is a timestamp safely inside the monitoring window.
func recentPublish() time.Time {
	return time.Now().UTC().AddDate(0, 0, -3)
}

// blockerPath returns a path whose parent is a regular file, so creating it
// fails.
func blockerPath(t *testing.T, name string) string {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	return filepath.Join(blocker, name)
}

func readReport(t *testing.T, path string) *report.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return &rep
}

// --- runOnce ---

func TestRunOnce_FailsWithoutUsableRecords(t *testing.T) {
	cfg := testConfig(t)

	err := runOnce(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for a records dir with no usable records, got nil")
	}
	if !strings.Contains(err.Error(), "no usable records") {
		t.Errorf("error = %v, want mention of no usable records", err)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("report written despite failed run: stat = %v", statErr)
	}
}

func TestRunOnce_MissingRecordsDirFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.RecordsDir = filepath.Join(cfg.RecordsDir, "nope")

	if err := runOnce(context.Background(), cfg); err == nil {
		t.Fatal("expected error for a missing records dir, got nil")
	}
}

func TestRunOnce_RegistryUnavailableStillWrites(t *testing.T) {
	// The list URL points at a closed port; the run degrades to short names.
	cfg := testConfig(t)
	writeRecord(t, cfg.RecordsDir, "CVE-2025-20001.json", "org-1", "testcna", recentPublish())

	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce() error = %v, a failed list fetch must not fail the run", err)
	}

	rep := readReport(t, cfg.OutputPath)
	if rep.Metadata.TotalCNAs != 1 {
		t.Fatalf("TotalCNAs = %d, want 1", rep.Metadata.TotalCNAs)
	}
	e := rep.CNAs[0]
	if e.Name != "testcna" || e.OrgName != "testcna" {
		t.Errorf("entry names = %q/%q, want the short-name fallback for both", e.Name, e.OrgName)
	}
	if e.Status != compute.StatusGrowth {
		t.Errorf("Status = %q, want %q (current activity, no baseline)", e.Status, compute.StatusGrowth)
	}
	if !e.Deviation.Unbounded {
		t.Errorf("Deviation = %+v, want unbounded", e.Deviation)
	}
}

func TestRunOnce_ResolvesNamesAndReconcilesInactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
  {
    "shortName": "testcna",
    "organizationName": "Test CNA Org",
    "securityAdvisories": {"advisories": [{"url": "https://testcna.example/advisories"}]}
  },
  {"shortName": "dormant", "organizationName": "Dormant Org"}
]`))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.CNAListURL = srv.URL
	writeRecord(t, cfg.RecordsDir, "CVE-2025-20001.json", "org-1", "testcna", recentPublish())

	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	rep := readReport(t, cfg.OutputPath)
	if rep.Metadata.TotalCNAs != 2 || rep.Metadata.Inactive != 1 {
		t.Fatalf("metadata = %+v, want 2 organizations with 1 inactive", rep.Metadata)
	}

	byName := map[string]report.Entry{}
	for _, e := range rep.CNAs {
		byName[e.Name] = e
	}
	active := byName["testcna"]
	if active.OrgName != "Test CNA Org" {
		t.Errorf("OrgName = %q, want the official organization name", active.OrgName)
	}
	if active.AdvisoryURL != "https://testcna.example/advisories" {
		t.Errorf("AdvisoryURL = %q, want the official advisory url", active.AdvisoryURL)
	}
	ghost := byName["dormant"]
	if ghost.Status != compute.StatusInactive {
		t.Errorf("dormant Status = %q, want %q", ghost.Status, compute.StatusInactive)
	}
	if ghost.DaysSinceLast != nil {
		t.Errorf("dormant DaysSinceLast = %d, want null", *ghost.DaysSinceLast)
	}
}

func TestRunOnce_ReportWriteFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	writeRecord(t, cfg.RecordsDir, "CVE-2025-20001.json", "org-1", "testcna", recentPublish())
	cfg.OutputPath = blockerPath(t, "anomaly_data.json")

	if err := runOnce(context.Background(), cfg); err == nil {
		t.Fatal("expected error writing the report below a regular file, got nil")
	}
}

func TestRunOnce_MetricsFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	writeRecord(t, cfg.RecordsDir, "CVE-2025-20001.json", "org-1", "testcna", recentPublish())
	cfg.MetricsPath = blockerPath(t, "cnawatch.prom")

	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce() error = %v, the metrics snapshot is best-effort", err)
	}
	if _, err := os.Stat(cfg.OutputPath); err != nil {
		t.Errorf("report missing after metrics failure: %v", err)
	}
}

func TestRunOnce_WritesMetricsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	writeRecord(t, cfg.RecordsDir, "CVE-2025-20001.json", "org-1", "testcna", recentPublish())
	cfg.MetricsPath = filepath.Join(t.TempDir(), "metrics", "cnawatch.prom")

	if err := runOnce(context.Background(), cfg); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}

	data, err := os.ReadFile(cfg.MetricsPath)
	if err != nil {
		t.Fatalf("read metrics snapshot: %v", err)
	}
	if !strings.Contains(string(data), "cnawatch_cnas") {
		t.Errorf("snapshot missing the cnawatch_cnas series:\n%s", data)
	}
}

// --- flag and config plumbing ---

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for an explicit missing config path, got nil")
	}
}

func TestLoadConfig_MissingDefaultUsesDefaults(t *testing.T) {
	// The package directory carries no cnawatch.yaml, so the default path
	// resolves to nothing and the built-in defaults apply.
	cfg, err := loadConfig(config.DefaultPath)
	if err != nil {
		t.Fatalf("loadConfig(default path) error = %v", err)
	}
	if cfg.RecordsDir != config.DefaultRecordsDir {
		t.Errorf("RecordsDir = %q, want default %q", cfg.RecordsDir, config.DefaultRecordsDir)
	}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name         string
		records, out string
		wantRecords  string
		wantOut      string
	}{
		{"both flags win", "/data/cves", "/tmp/report.json", "/data/cves", "/tmp/report.json"},
		{"records only", "/data/cves", "", "/data/cves", config.DefaultOutputPath},
		{"no flags keep config", "", "", config.DefaultRecordsDir, config.DefaultOutputPath},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			applyOverrides(cfg, tc.records, tc.out)
			if cfg.RecordsDir != tc.wantRecords {
				t.Errorf("RecordsDir = %q, want %q", cfg.RecordsDir, tc.wantRecords)
			}
			if cfg.OutputPath != tc.wantOut {
				t.Errorf("OutputPath = %q, want %q", cfg.OutputPath, tc.wantOut)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
