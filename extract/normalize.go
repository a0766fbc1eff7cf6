package extract

import (
	"strconv"
	"strings"
)

// Resolution says how the canonical answer was reached. It is reported to
// logs and metrics only; callers still get a plain string.
type Resolution string

const (
	ResolutionDeclined Resolution = "declined"
	ResolutionEmpty    Resolution = "empty"
	ResolutionIndex    Resolution = "index"
	ResolutionMatch    Resolution = "match"
	ResolutionFreeText Resolution = "free_text"
)

// Canonical turns a raw channel response into the canonical answer.
func Canonical(raw any, choices []string) (string, Resolution) {
	text, declined := Extract(raw)
	if declined {
		return "", ResolutionDeclined
	}
	return Normalize(text, choices)
}

// Normalize resolves text against choices. A leading number such as "2",
// "2)" or "2: staging" selects by 1-based index; otherwise a case-insensitive
// exact match selects. A selection is returned with the choice's own casing.
// Without a selection text comes back unchanged.
func Normalize(text string, choices []string) (string, Resolution) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return text, ResolutionEmpty
	}
	if len(choices) == 0 {
		return text, ResolutionFreeText
	}

	if idx, ok := choiceIndex(raw, len(choices)); ok {
		return choices[idx-1], ResolutionIndex
	}
	for _, c := range choices {
		if strings.EqualFold(raw, c) {
			return c, ResolutionMatch
		}
	}
	return text, ResolutionFreeText
}

func choiceIndex(raw string, n int) (int, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, false
	}
	token := strings.TrimRight(fields[0], ").:]")
	if !isDigits(token) {
		return 0, false
	}
	idx, err := strconv.Atoi(token)
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
