package release

type tableSpec struct {
	name   string
	header []string
	rows   [][]string
}

// WriteContent writes every metadata table of content under layout.Root.
// The concatenated table is only written when content.Concatenated is not
// nil.
func WriteContent(layout Layout, content Content) error {
	p := newProjector(layout.Root, content.Conversations)

	tables := []tableSpec{
		{ConversationCSV, ConversationColumns, conversationRows(content.Conversations)},
		{ParticipantCSV, ParticipantColumns, participantRows(content.Participants)},
		{ProducerCSV, ProducerColumns, producerRows(content.Producers)},
		{ShortCSV, ShortColumns, shortRows(content.Short)},
		{ShortCompleteCSV, ShortCompleteColumns, p.shortCompleteRows(content.Short)},
		{LongCSV, LongColumns, longRows(content.Long)},
		{LongCompleteCSV, LongCompleteColumns, p.longCompleteRows(content.Long)},
	}
	if content.Concatenated != nil {
		tables = append(tables, tableSpec{ShortConcatenatedCSV, ShortConcatenatedColumns, p.concatenatedRows(content.Concatenated)})
	}

	for _, table := range tables {
		if err := WriteCSV(layout.Table(table.name), table.header, table.rows); err != nil {
			return err
		}
	}
	return nil
}
