// Package ldc converts a finished release into the layout and formats of the
// Linguistic Data Consortium distribution.
//
// The export adds partition sets, keeps only the long fragments that pair the
// two distribution languages, rewrites fragment ids with an S or L kind
// marker, converts fragment audio to FLAC and checks each converted file
// with ffprobe before writing the metadata tables.
package ldc
