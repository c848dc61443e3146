// Package metrics defines Prometheus metrics for GRL builds, covering subrun
// sources, merged and kept gaps, written intervals and run livetime. A build
// is a one-shot process, so metrics are exported to a node-exporter textfile
// or a pushgateway instead of being scraped.
package metrics
