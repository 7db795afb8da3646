package corpus

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Role distinguishes original conversations from their re-enactments.
type Role string

const (
	RoleOriginal  Role = "OG"
	RoleReenacted Role = "RE"
)

// Valid reports whether r is one of the two known role codes.
func (r Role) Valid() bool {
	return r == RoleOriginal || r == RoleReenacted
}

// DefaultLanguageCodes lists the conversation language codes used by DRAL.
var DefaultLanguageCodes = []string{"EN", "ES", "JA", "BN", "FR"}

// ConversationRow is one row of the workbook's conversation sheet.
type ConversationRow struct {
	// SheetRow is the 1-based spreadsheet row number, header included.
	SheetRow                 int
	ID                       string
	RecordingDate            string
	Role                     Role
	ParticipantIDLeft        string
	ParticipantIDRight       string
	ParticipantIDLeftUnique  string
	ParticipantIDRightUnique string
	ProducerID               string
}

// Conversation is a validated conversation with its derived paths and its
// translation counterpart.
type Conversation struct {
	ConversationRow
	LangCode      string
	Number        int
	AudioPath     string
	MarkupPath    string
	CopyAudioPath string
	TransID       string
	TransLangCode string
}

// IDPattern matches conversation identifiers for a fixed set of language codes.
type IDPattern struct {
	re *regexp.Regexp
}

// NewIDPattern builds the `^(LANG)_(\d{3})$` matcher for codes.
func NewIDPattern(codes []string) (IDPattern, error) {
	if len(codes) == 0 {
		return IDPattern{}, fmt.Errorf("conversation id pattern: no language codes")
	}
	quoted := make([]string, 0, len(codes))
	for _, code := range codes {
		quoted = append(quoted, regexp.QuoteMeta(strings.ToUpper(strings.TrimSpace(code))))
	}
	re, err := regexp.Compile(`^(` + strings.Join(quoted, "|") + `)_(\d{3})$`)
	if err != nil {
		return IDPattern{}, fmt.Errorf("conversation id pattern: %w", err)
	}
	return IDPattern{re: re}, nil
}

// Parse splits a conversation id into its language code and number.
func (p IDPattern) Parse(id string) (lang string, number int, ok bool) {
	if p.re == nil {
		return "", 0, false
	}
	m := p.re.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}
