package release

import (
	"strconv"

	"dral/internal/corpus"
	"dral/internal/fileutil"
)

var (
	ConversationColumns = []string{
		"id",
		"recording_date",
		"original_or_reenacted",
		"participant_id_left",
		"participant_id_right",
		"participant_id_left_unique",
		"participant_id_right_unique",
		"producer_id",
		"trans_id",
	}

	ParticipantColumns = []string{
		"id",
		"id_unique",
		"lang1",
		"lang2",
		"lang_strength",
		"dialect_note1",
		"dialect_note2",
		"is_producer",
	}

	ProducerColumns = []string{"id"}

	ShortColumns = []string{
		"id",
		"participant_id",
		"participant_id_unique",
		"lang_code",
		"conv_id",
		"original_or_reenacted",
		"time_start",
		"time_end",
		"duration",
		"trans_id",
	}

	LongColumns = []string{
		"id",
		"participant_id_left",
		"participant_id_right",
		"participant_id_left_unique",
		"participant_id_right_unique",
		"lang_code",
		"conv_id",
		"original_or_reenacted",
		"time_start",
		"time_end",
		"duration",
		"trans_id",
	}

	ShortCompleteColumns = []string{
		"id",
		"markup_value",
		"tier_name",
		"track_side_code",
		"channel",
		"participant_id",
		"participant_id_unique",
		"participant_id_left",
		"participant_id_right",
		"participant_id_left_unique",
		"participant_id_right_unique",
		"lang_code",
		"trans_lang_code",
		"conv_id",
		"trans_conv_id",
		"original_or_reenacted",
		"conv_audio_path",
		"audio_path",
		"time_start",
		"time_end",
		"duration",
		"trans_id",
	}

	LongCompleteColumns = []string{
		"id",
		"markup_value",
		"tier_name",
		"participant_id_left",
		"participant_id_right",
		"participant_id_left_unique",
		"participant_id_right_unique",
		"lang_code",
		"trans_lang_code",
		"conv_id",
		"trans_conv_id",
		"original_or_reenacted",
		"conv_audio_path",
		"audio_path",
		"time_start",
		"time_end",
		"duration",
		"trans_id",
	}

	ShortConcatenatedColumns = []string{
		"id",
		"conv_id",
		"track_side_code",
		"concat_audio_path",
		"time_start_rel",
		"time_end_rel",
		"duration",
		"trans_id",
	}
)

// Content is everything a release writes besides audio.
type Content struct {
	Conversations []corpus.Conversation
	Participants  []corpus.Participant
	Producers     []corpus.Producer
	Short         []corpus.ShortFragment
	Long          []corpus.LongFragment
	Concatenated  []corpus.ShortFragment
}

// projector turns typed rows into table cells. Paths are written relative to
// root, with conversation audio pointing at the release copy.
type projector struct {
	root      string
	copyPaths map[string]string
}

func newProjector(root string, convs []corpus.Conversation) projector {
	copies := make(map[string]string, len(convs))
	for _, c := range convs {
		copies[c.ID] = c.CopyAudioPath
	}
	return projector{root: root, copyPaths: copies}
}

func (p projector) rel(path string) string {
	if path == "" {
		return ""
	}
	return fileutil.RelativeTo(p.root, path)
}

func (p projector) convAudio(f corpus.Fragment) string {
	if path, ok := p.copyPaths[f.ConvID]; ok {
		return p.rel(path)
	}
	return p.rel(f.ConvAudioPath)
}

func conversationRows(convs []corpus.Conversation) [][]string {
	rows := make([][]string, 0, len(convs))
	for _, c := range convs {
		rows = append(rows, []string{
			c.ID,
			c.RecordingDate,
			string(c.Role),
			c.ParticipantIDLeft,
			c.ParticipantIDRight,
			c.ParticipantIDLeftUnique,
			c.ParticipantIDRightUnique,
			c.ProducerID,
			c.TransID,
		})
	}
	return rows
}

func participantRows(participants []corpus.Participant) [][]string {
	rows := make([][]string, 0, len(participants))
	for _, p := range participants {
		rows = append(rows, []string{
			p.ID,
			p.IDUnique,
			p.Lang1,
			p.Lang2,
			p.LangStrength,
			p.DialectNote1,
			p.DialectNote2,
			p.IsProducer,
		})
	}
	return rows
}

func producerRows(producers []corpus.Producer) [][]string {
	rows := make([][]string, 0, len(producers))
	for _, p := range producers {
		rows = append(rows, []string{p.ID})
	}
	return rows
}

func shortRows(frags []corpus.ShortFragment) [][]string {
	rows := make([][]string, 0, len(frags))
	for _, f := range frags {
		rows = append(rows, []string{
			f.ID,
			f.ParticipantID,
			f.ParticipantIDUnique,
			f.LangCode,
			f.ConvID,
			string(f.Role),
			corpus.FormatTimedelta(f.Start),
			corpus.FormatTimedelta(f.End),
			corpus.FormatTimedelta(f.Duration),
			f.TransID,
		})
	}
	return rows
}

func longRows(frags []corpus.LongFragment) [][]string {
	rows := make([][]string, 0, len(frags))
	for _, f := range frags {
		rows = append(rows, []string{
			f.ID,
			f.ParticipantIDLeft,
			f.ParticipantIDRight,
			f.ParticipantIDLeftUnique,
			f.ParticipantIDRightUnique,
			f.LangCode,
			f.ConvID,
			string(f.Role),
			corpus.FormatTimedelta(f.Start),
			corpus.FormatTimedelta(f.End),
			corpus.FormatTimedelta(f.Duration),
			f.TransID,
		})
	}
	return rows
}

func (p projector) shortCompleteRows(frags []corpus.ShortFragment) [][]string {
	rows := make([][]string, 0, len(frags))
	for _, f := range frags {
		rows = append(rows, []string{
			f.ID,
			f.Value,
			string(f.Tier),
			string(f.Track),
			strconv.Itoa(f.Remix.Channel),
			f.ParticipantID,
			f.ParticipantIDUnique,
			f.ParticipantIDLeft,
			f.ParticipantIDRight,
			f.ParticipantIDLeftUnique,
			f.ParticipantIDRightUnique,
			f.LangCode,
			f.TransLangCode,
			f.ConvID,
			f.TransConvID,
			string(f.Role),
			p.convAudio(f.Fragment),
			p.rel(f.AudioPath),
			corpus.FormatTimedelta(f.Start),
			corpus.FormatTimedelta(f.End),
			corpus.FormatTimedelta(f.Duration),
			f.TransID,
		})
	}
	return rows
}

func (p projector) longCompleteRows(frags []corpus.LongFragment) [][]string {
	rows := make([][]string, 0, len(frags))
	for _, f := range frags {
		rows = append(rows, []string{
			f.ID,
			f.Value,
			string(f.Tier),
			f.ParticipantIDLeft,
			f.ParticipantIDRight,
			f.ParticipantIDLeftUnique,
			f.ParticipantIDRightUnique,
			f.LangCode,
			f.TransLangCode,
			f.ConvID,
			f.TransConvID,
			string(f.Role),
			p.convAudio(f.Fragment),
			p.rel(f.AudioPath),
			corpus.FormatTimedelta(f.Start),
			corpus.FormatTimedelta(f.End),
			corpus.FormatTimedelta(f.Duration),
			f.TransID,
		})
	}
	return rows
}

func (p projector) concatenatedRows(frags []corpus.ShortFragment) [][]string {
	rows := make([][]string, 0, len(frags))
	for _, f := range frags {
		if f.Concat == nil {
			continue
		}
		rows = append(rows, []string{
			f.ID,
			f.ConvID,
			string(f.Track),
			p.rel(f.Concat.AudioPath),
			corpus.FormatTimedelta(f.Concat.StartRel),
			corpus.FormatTimedelta(f.Concat.EndRel),
			corpus.FormatTimedelta(f.Duration),
			f.TransID,
		})
	}
	return rows
}
