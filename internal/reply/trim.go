package reply

import "strings"

// sentenceCutRatio is how far into the budget a '.' or ' ' must sit for the
// trim to cut there instead of hard-truncating.
const sentenceCutRatio = 0.6

// SmartTrim limits text to limit characters with sentence-aware truncation.
// The result is always at most limit runes for limit >= 4.
func SmartTrim(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := runes[:limit-3]
	threshold := int(sentenceCutRatio * float64(limit))

	if pos := lastIndexRune(cut, '.'); pos >= threshold {
		return strings.TrimSpace(string(cut[:pos])) + " ..."
	}
	if pos := lastIndexRune(cut, ' '); pos >= threshold {
		return strings.TrimSpace(string(cut[:pos])) + " ..."
	}
	return string(cut) + "..."
}

func lastIndexRune(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// stripMarkdown removes the formatting the QA model sneaks in despite the
// terse-mode instruction: emphasis markers, inline code, heading and list
// prefixes.
func stripMarkdown(text string) string {
	for _, marker := range []string{"**", "__", "```", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		for _, prefix := range []string{"#", "- ", "* ", "> "} {
			for strings.HasPrefix(trimmed, prefix) {
				trimmed = strings.TrimLeft(strings.TrimPrefix(trimmed, prefix), " ")
			}
		}
		lines[i] = trimmed
	}
	return strings.Join(lines, "\n")
}

// stripSignature drops a trailing "— ASKA" style sign-off.
func stripSignature(text string) string {
	trimmed := strings.TrimRight(text, " \n")
	lower := strings.ToLower(trimmed)
	for _, sig := range []string{"— aska", "- aska", "-aska", "~ aska", "~aska"} {
		if strings.HasSuffix(lower, sig) {
			return strings.TrimRight(trimmed[:len(trimmed)-len(sig)], " \n-—~")
		}
	}
	return trimmed
}
