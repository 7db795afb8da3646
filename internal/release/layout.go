package release

import "path/filepath"

// Input layout.
const (
	InputRecordingsDir = "recordings"
	InputWorkbook      = "metadata.xlsx"
)

// Release file names.
const (
	RecordingsDir        = "recordings"
	ShortFragmentsDir    = "fragments-short"
	LongFragmentsDir     = "fragments-long"
	ConcatenatedDir      = "fragments-short-concatenated"
	ConversationCSV      = "conversation.csv"
	ParticipantCSV       = "participant.csv"
	ProducerCSV          = "producer.csv"
	ShortCSV             = "fragments-short.csv"
	ShortCompleteCSV     = "fragments-short-complete.csv"
	LongCSV              = "fragments-long.csv"
	LongCompleteCSV      = "fragments-long-complete.csv"
	ShortConcatenatedCSV = "fragments-short-concatenated.csv"
)

// Layout resolves the paths of one release directory.
type Layout struct {
	Root string
}

func (l Layout) Recordings() string { return filepath.Join(l.Root, RecordingsDir) }
func (l Layout) ShortDir() string { return filepath.Join(l.Root, ShortFragmentsDir) }
func (l Layout) LongDir() string { return filepath.Join(l.Root, LongFragmentsDir) }
func (l Layout) ConcatDir() string { return filepath.Join(l.Root, ConcatenatedDir) }
func (l Layout) Table(name string) string { return filepath.Join(l.Root, name) }

// AudioDirs lists every audio directory of the release.
func (l Layout) AudioDirs() []string {
	return []string{l.Recordings(), l.ShortDir(), l.LongDir(), l.ConcatDir()}
}
