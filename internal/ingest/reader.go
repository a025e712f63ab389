package ingest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLoggedErrors caps how many per-file parse failures are logged verbosely.
// Past the cap they are only counted; a corrupted mirror should not flood the
// log with one line per file.
const maxLoggedErrors = 10

// progressEvery is how often, in successfully decoded files, a progress line
// is logged. Full mirrors run to hundreds of thousands of files.
const progressEvery = 10000

// Record is one normalized publication: which organization published, under
// what short name, and when.
type Record struct {
	OrgID     string
	ShortName string
	Published time.Time
}

// Stats summarizes one ingestion pass for logging and the metrics snapshot.
type Stats struct {
	// FilesFound is the number of .json files discovered under the root.
	FilesFound int

	// Processed is the number of files that decoded as record documents,
	// including ones later dropped for a missing publication date.
	Processed int

	// ParseErrors counts files skipped because they would not decode.
	ParseErrors int

	// NoDate counts decoded records dropped for a missing or unparseable
	// publication timestamp.
	NoDate int
}

// cveFile is the subset of a CVE v5 record document the analyzer reads.
type cveFile struct {
	CVEMetadata struct {
		DatePublished     string `json:"datePublished"`
		AssignerOrgID     string `json:"assignerOrgId"`
		AssignerShortName string `json:"assignerShortName"`
	} `json:"cveMetadata"`
	Containers struct {
		CNA struct {
			ProviderMetadata struct {
				ShortName string `json:"shortName"`
			} `json:"providerMetadata"`
		} `json:"cna"`
	} `json:"containers"`
}

// ReadTree walks root recursively, decodes every .json file as a record
// document and returns the usable publication records plus ingestion stats.
//
// Malformed files are skipped and counted, never fatal; records without a
// parseable timestamp are dropped silently, and unreadable subtrees are
// logged and walked around. Only a missing root returns an error. Deciding
// whether zero usable records fails the run is the caller's business.
func ReadTree(root string) ([]Record, Stats, error) {
	var stats Stats

	if _, err := os.Stat(root); err != nil {
		return nil, stats, fmt.Errorf("ingest: records root: %w", err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		// An unreadable subtree costs its own files, not the run.
		if err != nil {
			slog.Warn("ingest: skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("ingest: walk records tree: %w", err)
	}
	stats.FilesFound = len(files)
	slog.Info("ingest: scanning record files", "root", root, "files", stats.FilesFound)

	records := make([]Record, 0, len(files))
	for _, path := range files {
		var rec cveFile
		if err := decodeFile(path, &rec); err != nil {
			stats.ParseErrors++
			if stats.ParseErrors <= maxLoggedErrors {
				slog.Warn("ingest: skipping malformed file", "file", path, "err", err)
			}
			continue
		}

		stats.Processed++
		if stats.Processed%progressEvery == 0 {
			slog.Info("ingest: progress", "processed", stats.Processed, "total", stats.FilesFound)
		}

		published, ok := parseDate(rec.CVEMetadata.DatePublished)
		if !ok {
			stats.NoDate++
			continue
		}

		records = append(records, Record{
			OrgID:     orgID(&rec),
			ShortName: shortName(&rec),
			Published: published,
		})
	}

	slog.Info("ingest: parsing complete",
		"processed", stats.Processed,
		"errors", stats.ParseErrors,
		"records", len(records))

	return records, stats, nil
}

func decodeFile(path string, rec *cveFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, rec)
}

// shortName prefers the CNA container's provider short name and falls back to
// the assigner short name carried by older records.
func shortName(rec *cveFile) string {
	if s := rec.Containers.CNA.ProviderMetadata.ShortName; s != "" {
		return s
	}
	if s := rec.CVEMetadata.AssignerShortName; s != "" {
		return s
	}
	return "Unknown"
}

func orgID(rec *cveFile) string {
	if id := rec.CVEMetadata.AssignerOrgID; id != "" {
		return id
	}
	return "Unknown"
}

// parseDate reads the publication timestamps found in record files. Values
// with a time component are truncated at the first timezone or fractional
// marker and read as naive UTC; date-only values parse as midnight UTC.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if strings.ContainsRune(s, 'T') {
		if i := strings.IndexAny(s, "+Z."); i >= 0 {
			s = s[:i]
		}
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
