package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is a header plus rows of cell text, used to author workbooks.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// Write creates an xlsx file at path with one worksheet per entry in sheets.
func Write(path string, sheets map[string]Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, name := range []string{SheetConversation, SheetParticipant, SheetProducer} {
		sheet, ok := sheets[name]
		if !ok {
			continue
		}
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeRow(f, name, 1, sheet.Header); err != nil {
			return err
		}
		for i, row := range sheet.Rows {
			if err := writeRow(f, name, i+2, row); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, number int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, number)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, number, err)
	}
	return nil
}
