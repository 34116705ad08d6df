package util

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ContainsAnyCaseInsensitive returns true if text contains any of the needles (case-insensitive).
func ContainsAnyCaseInsensitive(text string, needles []string) bool {
	lt := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lt, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Tokenize splits on spaces and punctuation.
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	repl := strings.NewReplacer(
		",", " ", ".", " ", "!", " ", "?", " ", ":", " ", ";", " ",
		"\n", " ", "\t", " ", "\r", " ", "(", " ", ")", " ", "[", " ", "]", " ",
	)
	s = repl.Replace(s)
	return strings.Fields(s)
}

// Slugify lowercases and joins word tokens with hyphens, for topic keys.
func Slugify(s string) string {
	return strings.Join(Tokenize(s), "-")
}

// DedupeHash fingerprints a forum+topic+title combination as a short
// base-36 string. 32-bit multiply-by-31 rolling hash over UTF-16 code
// units; collision-prone on purpose, for display and duplicate spotting
// only, never a uniqueness guarantee.
func DedupeHash(forumName, topicKey, title string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(forumName + "|" + topicKey + "|" + title)) {
		h = h*31 + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
