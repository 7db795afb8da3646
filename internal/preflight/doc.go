// Package preflight provides readiness checks for the tools and filesystem
// paths a release run depends on.
//
// These checks run in two contexts:
//   - The release command calls RunAll before building and refuses to start
//     when a required check fails, so missing tools surface before any audio
//     work begins.
//   - The CLI "dral doctor" command prints every check, including the
//     dependency versions and the most recent ledger run.
package preflight
