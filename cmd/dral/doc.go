// Package main hosts the dral CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into release builds,
// partition assignment, statistics, LDC exports, and environment checks. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on flags and output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
