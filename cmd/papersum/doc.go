// Package main hosts the papersum CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the internal
// packages: summarize and fetch dispatch work items through internal/runner,
// concat joins the generated summaries, history reads the run ledger, doctor
// runs preflight checks, and config scaffolds or prints configuration. This
// package resolves configuration and builds the logger once per invocation so
// subcommands only wire collaborators together.
package main
