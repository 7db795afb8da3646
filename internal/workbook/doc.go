// Package workbook reads the DRAL metadata workbook (metadata.xlsx).
//
// The workbook has three sheets (conversation, participant, producer) whose
// header names are load-bearing. Rows with empty required cells are dropped
// and returned as IncompleteRow entries carrying the spreadsheet row number, so
// the caller can report them the way a human would look them up.
package workbook
