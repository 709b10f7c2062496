package spam

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultKeywords are promotion phrases that always disqualify a mention.
var defaultKeywords = []string{
	"follow back",
	"folback",
	"promo",
	"promote",
	"dm for collab",
	"shoutout",
	"boost me",
	"subscribe",
	"retweet this",
	"please follow",
	"follow me",
}

// Filter decides whether an inbound mention deserves a reply. The policy is
// permissive: questions always pass, and only clearly empty or promotional
// texts are dropped.
type Filter struct {
	disabled bool
	strict   bool
	minChars int
	minWords int
	keywords []string // user-supplied additions, already lowercased
}

func NewFilter(disabled, strict bool, minChars, minWords int, keywords []string) *Filter {
	return &Filter{
		disabled: disabled,
		strict:   strict,
		minChars: minChars,
		minWords: minWords,
		keywords: keywords,
	}
}

// Accept evaluates raw (the mention as received) and cleaned (the mention
// with the bot's handle stripped).
func (f *Filter) Accept(raw, cleaned string) bool {
	if f.disabled {
		return true
	}

	// Questions always get an answer.
	if strings.Contains(raw, "?") || strings.Contains(cleaned, "?") {
		return true
	}

	alnum := containsAlnum(cleaned)
	wordCount := countAlnumWords(cleaned)

	substantial := (utf8.RuneCountInString(cleaned) >= f.minChars && alnum) ||
		wordCount >= f.minWords
	if !substantial {
		if f.strict {
			return false
		}
		if !alnum {
			return false
		}
	}

	haystack := strings.ToLower(raw + " " + cleaned)
	for _, kw := range defaultKeywords {
		if strings.Contains(haystack, kw) {
			return false
		}
	}
	for _, kw := range f.keywords {
		if strings.Contains(haystack, kw) {
			return false
		}
	}

	return true
}

func containsAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func countAlnumWords(s string) int {
	count := 0
	for _, w := range strings.Fields(s) {
		if containsAlnum(w) {
			count++
		}
	}
	return count
}
