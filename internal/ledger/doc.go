// Package ledger persists release runs and their audio job outcomes in a
// SQLite database.
//
// Each release run is one row in `runs`; every copy, trim and concatenation
// job of that run is one row in `jobs`. The ledger is bookkeeping only: the
// release tables on disk stay authoritative, and a missing or unwritable
// ledger never changes which rows a release contains.
package ledger
