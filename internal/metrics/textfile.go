package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/cnawatch/cnawatch/internal/compute"
	"github.com/cnawatch/cnawatch/internal/ingest"
	"github.com/cnawatch/cnawatch/internal/report"
)

// Metric families written to the textfile snapshot.
const (
	// metricCNAs counts organizations by activity status, one series per status.
	metricCNAs = "cnawatch_cnas"

	// metricAnomalies is the size of the report's anomaly list.
	metricAnomalies = "cnawatch_anomalies"

	// metricRecords is the number of usable publication records ingested.
	metricRecords = "cnawatch_records_usable"

	// metricParseErrors counts record files skipped as malformed.
	metricParseErrors = "cnawatch_parse_errors"

	// metricLastRun is the unix time the snapshot was produced.
	metricLastRun = "cnawatch_last_run_timestamp_seconds"
)

// WriteTextfile renders the run's headline numbers as Prometheus gauges in
// text exposition format for a node_exporter textfile collector. The
// snapshot goes to a temp file first and is renamed into place, so the
// collector never reads a torn file.
func WriteTextfile(path string, rep *report.Report, stats ingest.Stats, now time.Time) error {
	statuses := []struct {
		status compute.Status
		count  int
	}{
		{compute.StatusGrowth, rep.Metadata.Growth},
		{compute.StatusNormal, rep.Metadata.Normal},
		{compute.StatusDeclining, rep.Metadata.Declining},
		{compute.StatusInactive, rep.Metadata.Inactive},
	}
	byStatus := make([]*dto.Metric, 0, len(statuses))
	for _, s := range statuses {
		byStatus = append(byStatus,
			point(float64(s.count), label("status", strings.ToLower(string(s.status)))))
	}

	families := []*dto.MetricFamily{
		gauge(metricCNAs, "Organizations by activity status in the last run.", byStatus...),
		gauge(metricAnomalies, "Anomalous organizations found in the last run.",
			point(float64(rep.Metadata.TotalAnomalies))),
		gauge(metricRecords, "Usable publication records ingested in the last run.",
			point(float64(stats.Processed-stats.NoDate))),
		gauge(metricParseErrors, "Record files skipped as malformed in the last run.",
			point(float64(stats.ParseErrors))),
		gauge(metricLastRun, "Unix time of the last completed run.",
			point(float64(now.Unix()))),
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("metrics: create snapshot dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cnawatch-*.prom")
	if err != nil {
		return fmt.Errorf("metrics: create temp file: %w", err)
	}

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("metrics: flush temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("metrics: publish snapshot: %w", err)
	}
	return nil
}

func gauge(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   &name,
		Help:   &help,
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

func point(value float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: &value},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}
