package ldc

import (
	"fmt"
	"strings"
)

// Fragment kind markers inserted into distribution ids.
const (
	MarkerShort = "S"
	MarkerLong  = "L"
)

// RewriteID inserts marker after the conversation id and drops any '#':
// "EN_001_1" becomes "EN_001_S_1" and "EN_001_#1" becomes "EN_001_L_1".
func RewriteID(id, marker string) (string, error) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("fragment id %q is not LANG_NNN_VALUE", id)
	}
	value := strings.ReplaceAll(parts[2], "#", "")
	return parts[0] + "_" + parts[1] + "_" + marker + "_" + value, nil
}

// languageOf returns the language code prefix of a fragment id.
func languageOf(id string) string {
	lang, _, _ := strings.Cut(id, "_")
	return lang
}
