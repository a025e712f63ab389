// Package config loads and watches the analyzer configuration file
// (cnawatch.yaml).
//
// Top-level type:
//   - Config: records_dir, output_path, metrics_path, cna_list_url,
//     fetch_timeout, window lengths (monitoring_window_days, baseline_months,
//     recent_window_days), log_level, watch{interval},
//     notify{max_anomalies, webhooks []{type, url_env}}
//
// Load(path) reads the YAML file, applies defaults (30-day monitoring window,
// 12 baseline months, 14-day recent window, 30s fetch timeout), then
// validates required fields and enums. Default() returns the pure-default
// config used when no file exists at the default path. Webhook URLs resolve
// from environment variables so the file never holds secrets.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create
// pattern used by atomic-save editors by re-adding the watch after a change.
package config
