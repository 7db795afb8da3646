// Package corpus defines the typed records that flow through a DRAL release
// build: workbook rows, validated conversations, markup records, and the short
// and long fragments derived from them.
//
// Values that may be absent (a conversation's translation, a short fragment's
// place in its concatenated track) are explicit pointer or comma-ok fields so
// later stages check them rather than inferring absence from empty strings.
package corpus
