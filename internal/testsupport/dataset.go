package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"dral/internal/corpus"
	"dral/internal/workbook"
)

// Conversation describes one conversation in a generated input tree.
type Conversation struct {
	ID   string
	Role corpus.Role
	// Records are written to {ID}.eaf. A nil slice skips the markup file.
	Records []corpus.Record
	// NoAudio skips {ID}.wav.
	NoAudio bool
	Seconds float64
}

// Span builds an aligned record from millisecond offsets.
func Span(tier corpus.Tier, value string, startMS, endMS int) corpus.Record {
	return corpus.Record{
		Tier:    string(tier),
		Value:   value,
		Start:   time.Duration(startMS) * time.Millisecond,
		End:     time.Duration(endMS) * time.Millisecond,
		Aligned: true,
	}
}

// WriteInput lays out a release input directory: recordings/ with one WAV and
// EAF per conversation, and metadata.xlsx listing every conversation. Each
// conversation gets participants L-{ID} and R-{ID} and producer "J".
func WriteInput(t testing.TB, dir string, convs []Conversation) {
	t.Helper()

	recordings := filepath.Join(dir, "recordings")
	var convRows, partRows [][]string
	for _, c := range convs {
		if !c.NoAudio {
			seconds := c.Seconds
			if seconds == 0 {
				seconds = 5
			}
			WriteWAV(t, filepath.Join(recordings, c.ID+".wav"), WAV{Seconds: seconds})
		}
		if c.Records != nil {
			WriteEAF(t, filepath.Join(recordings, c.ID+".eaf"), c.Records)
		}
		left, right := "L-"+c.ID, "R-"+c.ID
		convRows = append(convRows, []string{c.ID, "2022-06-01", string(c.Role), "1", "2", left, right, "J"})
		partRows = append(partRows,
			[]string{"1", left, "EN", "ES", "5", "none", "none", "no", c.ID},
			[]string{"2", right, "EN", "ES", "5", "none", "none", "no", c.ID},
		)
	}
	partRows = append(partRows, []string{"9", "UNUSED", "EN", "ES", "5", "none", "none", "no", "XX_999"})

	err := workbook.Write(filepath.Join(dir, "metadata.xlsx"), map[string]workbook.Sheet{
		workbook.SheetConversation: {Header: workbook.ConversationColumns, Rows: convRows},
		workbook.SheetParticipant:  {Header: workbook.ParticipantColumns, Rows: partRows},
		workbook.SheetProducer:     {Header: workbook.ProducerColumns, Rows: [][]string{{"J"}, {"K"}}},
	})
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
}
