package corpus

// Participant is one row of the workbook's participant sheet.
type Participant struct {
	SheetRow     int
	ID           string
	IDUnique     string
	Lang1        string
	Lang2        string
	LangStrength string
	DialectNote1 string
	DialectNote2 string
	IsProducer   string
	Conversation string
}

// Producer is one row of the workbook's producer sheet.
type Producer struct {
	SheetRow int
	ID       string
}

// FeaturedParticipants keeps participants whose unique id appears on either
// side of a retained conversation, preserving sheet order.
func FeaturedParticipants(participants []Participant, convs []Conversation) []Participant {
	featured := make(map[string]struct{}, len(convs)*2)
	for _, c := range convs {
		featured[c.ParticipantIDLeftUnique] = struct{}{}
		featured[c.ParticipantIDRightUnique] = struct{}{}
	}
	out := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if _, ok := featured[p.IDUnique]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FeaturedProducers keeps producers referenced by a retained conversation.
func FeaturedProducers(producers []Producer, convs []Conversation) []Producer {
	featured := make(map[string]struct{}, len(convs))
	for _, c := range convs {
		featured[c.ProducerID] = struct{}{}
	}
	out := make([]Producer, 0, len(producers))
	for _, p := range producers {
		if _, ok := featured[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}
