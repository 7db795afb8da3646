// Package extract drives the audio side of a release build.
//
// It copies conversation recordings, trims every short and long fragment out
// of its conversation audio, optionally checks short fragments for silence,
// and concatenates each conversation track's short fragments into a single
// file with per-fragment offsets. Every audio operation is an independent job
// on the worker pool; a failed job removes its row (and the translation of
// that row) from the tables handed back to the metadata writer.
package extract
