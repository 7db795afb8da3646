// Package partition assigns release fragments to training and test sets.
//
// Membership is a pure function of the conversation number embedded in a
// fragment id, looked up in a range table fixed per corpus version.
package partition

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Set names.
const (
	Training = "training"
	Test     = "test"
)

// ErrOutOfRange is returned for conversation numbers outside every range of
// a table.
var ErrOutOfRange = errors.New("conversation number not in any partition")

// ErrUnknownVersion is returned for versions without a range table.
var ErrUnknownVersion = errors.New("unknown partition version")

// Range is an inclusive range of conversation numbers.
type Range struct {
	Set   string
	First int
	Last  int
}

func (r Range) contains(n int) bool {
	return n >= r.First && n <= r.Last
}

// Table maps conversation numbers to sets for one corpus version.
type Table struct {
	Version string
	Ranges  []Range
}

var tables = map[string]Table{
	"7.0": {Version: "7.0", Ranges: []Range{{Training, 1, 104}, {Test, 105, 136}}},
	"8.0": {Version: "8.0", Ranges: []Range{{Training, 1, 104}, {Test, 105, 136}}},
}

// Versions lists the versions with a range table.
func Versions() []string {
	out := make([]string, 0, len(tables))
	for v := range tables {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ForVersion returns the range table of version.
func ForVersion(version string) (Table, error) {
	t, ok := tables[strings.TrimSpace(version)]
	if !ok {
		return Table{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownVersion, version, strings.Join(Versions(), ", "))
	}
	return t, nil
}

// Assign returns the set of fragmentID. The conversation number is the
// second underscore-separated field, so "EN_001_3" belongs to conversation 1.
func (t Table) Assign(fragmentID string) (string, error) {
	n, err := ConversationNumber(fragmentID)
	if err != nil {
		return "", err
	}
	for _, r := range t.Ranges {
		if r.contains(n) {
			return r.Set, nil
		}
	}
	return "", fmt.Errorf("%w: %s (conversation %d, version %s)", ErrOutOfRange, fragmentID, n, t.Version)
}

// ConversationNumber parses the conversation number out of a fragment or
// conversation id.
func ConversationNumber(id string) (int, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return 0, fmt.Errorf("id %q has no conversation number", id)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("id %q: conversation number: %w", id, err)
	}
	return n, nil
}
