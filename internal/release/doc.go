// Package release builds a DRAL release directory and reads it back.
//
// A Builder runs the whole pipeline for one input tree: guards, run lock,
// recording validation, conversation and markup validation, audio extraction
// and the metadata tables. The table helpers in this package are also what
// the partition, statistics and export commands use to read a finished
// release.
package release
