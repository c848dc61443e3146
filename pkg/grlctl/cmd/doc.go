// Package cmd implements the cobra command tree for the grlctl CLI: building
// a run's good run list, generating the batch DAG over many runs, inspecting
// GRL tables and gap reports, configuration, and shell completion.
package cmd
