package utils

import (
	"regexp"
	"strings"
)

var skillSeparator = regexp.MustCompile(`[,\s]+`)

// SkillsMatch reports whether a worker's free-text skills fit a work
// category. Either side empty counts as a match. Otherwise one must contain
// the other (case-insensitive) or they must share a word longer than two
// characters.
func SkillsMatch(skills, category string) bool {
	s := strings.ToLower(strings.TrimSpace(skills))
	c := strings.ToLower(strings.TrimSpace(category))
	if s == "" || c == "" {
		return true
	}
	if strings.Contains(s, c) || strings.Contains(c, s) {
		return true
	}

	categoryWords := map[string]struct{}{}
	for _, w := range skillSeparator.Split(c, -1) {
		if len(w) > 2 {
			categoryWords[w] = struct{}{}
		}
	}
	for _, w := range skillSeparator.Split(s, -1) {
		if _, ok := categoryWords[w]; ok {
			return true
		}
	}
	return false
}
