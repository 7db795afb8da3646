// Package report renders the human-readable diagnostics of a release build.
//
// Every stage that drops rows hands an Exclusion to a Reporter instead of
// printing directly. The console reporter renders each one as a table and
// mirrors it to the structured log; the collector keeps them in memory for
// tests and for the end-of-run summary.
package report
