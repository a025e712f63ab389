// Package notify delivers post-run anomaly summaries to webhooks.
//
// Supported target types: slack (plain text payload), teams (MessageCard),
// and generic http (JSON body with metadata and the top anomaly entries).
// URLs resolve from environment variables named in the config. Delivery is
// best-effort: failures are logged per target and never fail the run.
package notify
