package entity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"anoa.com/venti/pkg/apperror"
)

const maxTagLength = 50

var (
	ErrInvalidBadge = fmt.Errorf("badge must be a lowercase slug of at most 50 characters: %w", apperror.ErrInvalidInput)

	badgePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,49}$`)
)

// NormalizeBadge lowercases and trims a badge identifier and validates it.
func NormalizeBadge(badge string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(badge))
	if !badgePattern.MatchString(b) {
		return "", ErrInvalidBadge
	}
	return b, nil
}

// NormalizeTag trims and collapses inner whitespace of a free-form tag such as
// a skill or hobby. Empty or overlong tags are rejected.
func NormalizeTag(tag string) (string, bool) {
	t := strings.Join(strings.Fields(tag), " ")
	if t == "" || utf8.RuneCountInString(t) > maxTagLength {
		return "", false
	}
	return t, true
}

// NormalizeTagSet normalizes every tag, drops invalid ones and removes
// case-insensitive duplicates, keeping the first spelling.
func NormalizeTagSet(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		t, ok := NormalizeTag(raw)
		if !ok {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NewTags returns the tags in next that are not in prev, compared case-insensitively.
func NewTags(prev, next []string) []string {
	have := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		have[strings.ToLower(t)] = struct{}{}
	}
	var added []string
	for _, t := range next {
		if _, ok := have[strings.ToLower(t)]; !ok {
			added = append(added, t)
		}
	}
	return added
}
