package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"dral/internal/corpus"
	"dral/internal/services"
)

const (
	SheetConversation = "conversation"
	SheetParticipant  = "participant"
	SheetProducer     = "producer"
)

// ConversationColumns are the conversation sheet columns the release uses.
var ConversationColumns = []string{
	"id",
	"recording_date",
	"original_or_reenacted",
	"participant_id_left",
	"participant_id_right",
	"participant_id_left_unique",
	"participant_id_right_unique",
	"producer_id",
}

// ParticipantColumns are the participant sheet columns the release uses.
var ParticipantColumns = []string{
	"id",
	"id_unique",
	"lang1",
	"lang2",
	"lang_strength",
	"dialect_note1",
	"dialect_note2",
	"is_producer",
	"conversation",
}

// participantRequired are the participant cells that must not be empty.
var participantRequired = []string{
	"id",
	"lang1",
	"lang2",
	"lang_strength",
	"dialect_note1",
	"dialect_note2",
	"conversation",
	"id_unique",
}

// ProducerColumns are the producer sheet columns the release uses.
var ProducerColumns = []string{"id"}

// IncompleteRow is a sheet row dropped because required cells were empty.
type IncompleteRow struct {
	Sheet    string
	SheetRow int
	Missing  []string
}

// Workbook holds the parsed sheets.
type Workbook struct {
	Conversations []corpus.ConversationRow
	Participants  []corpus.Participant
	Producers     []corpus.Producer
	Incomplete    []IncompleteRow
}

// Read opens path and parses all three sheets.
func Read(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workbook", "open", path, err)
	}
	defer f.Close()

	wb := &Workbook{}

	convRows, err := readSheet(f, SheetConversation, ConversationColumns)
	if err != nil {
		return nil, err
	}
	for _, row := range convRows {
		if missing := row.missing(ConversationColumns); len(missing) > 0 {
			wb.Incomplete = append(wb.Incomplete, IncompleteRow{Sheet: SheetConversation, SheetRow: row.number, Missing: missing})
			continue
		}
		wb.Conversations = append(wb.Conversations, corpus.ConversationRow{
			SheetRow:                 row.number,
			ID:                       row.get("id"),
			RecordingDate:            row.get("recording_date"),
			Role:                     corpus.Role(row.get("original_or_reenacted")),
			ParticipantIDLeft:        row.get("participant_id_left"),
			ParticipantIDRight:       row.get("participant_id_right"),
			ParticipantIDLeftUnique:  row.get("participant_id_left_unique"),
			ParticipantIDRightUnique: row.get("participant_id_right_unique"),
			ProducerID:               row.get("producer_id"),
		})
	}

	partRows, err := readSheet(f, SheetParticipant, ParticipantColumns)
	if err != nil {
		return nil, err
	}
	for _, row := range partRows {
		if missing := row.missing(participantRequired); len(missing) > 0 {
			wb.Incomplete = append(wb.Incomplete, IncompleteRow{Sheet: SheetParticipant, SheetRow: row.number, Missing: missing})
			continue
		}
		wb.Participants = append(wb.Participants, corpus.Participant{
			SheetRow:     row.number,
			ID:           row.get("id"),
			IDUnique:     row.get("id_unique"),
			Lang1:        row.get("lang1"),
			Lang2:        row.get("lang2"),
			LangStrength: row.get("lang_strength"),
			DialectNote1: row.get("dialect_note1"),
			DialectNote2: row.get("dialect_note2"),
			IsProducer:   row.get("is_producer"),
			Conversation: row.get("conversation"),
		})
	}

	prodRows, err := readSheet(f, SheetProducer, ProducerColumns)
	if err != nil {
		return nil, err
	}
	for _, row := range prodRows {
		if missing := row.missing(ProducerColumns); len(missing) > 0 {
			wb.Incomplete = append(wb.Incomplete, IncompleteRow{Sheet: SheetProducer, SheetRow: row.number, Missing: missing})
			continue
		}
		wb.Producers = append(wb.Producers, corpus.Producer{SheetRow: row.number, ID: row.get("id")})
	}

	return wb, nil
}

type sheetRow struct {
	number int
	cells  map[string]string
}

func (r sheetRow) get(column string) string {
	return r.cells[column]
}

func (r sheetRow) missing(columns []string) []string {
	var out []string
	for _, c := range columns {
		if r.cells[c] == "" {
			out = append(out, c)
		}
	}
	return out
}

func readSheet(f *excelize.File, sheet string, required []string) ([]sheetRow, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workbook", "read sheet", sheet, err)
	}
	if len(rows) == 0 {
		return nil, services.Wrap(services.ErrValidation, "workbook", "read sheet",
			fmt.Sprintf("sheet %q has no header row", sheet), nil)
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[cleanCell(name)] = i
	}
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, services.Wrap(services.ErrValidation, "workbook", "read sheet",
				fmt.Sprintf("sheet %q is missing column %q", sheet, col), nil)
		}
	}

	out := make([]sheetRow, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		cells := make(map[string]string, len(required))
		for _, col := range required {
			idx := header[col]
			if idx < len(raw) {
				cells[col] = cleanCell(raw[idx])
			}
		}
		// Header is sheet row 1.
		out = append(out, sheetRow{number: i + 2, cells: cells})
	}
	return out, nil
}

func cleanCell(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
