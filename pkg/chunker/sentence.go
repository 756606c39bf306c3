package chunker

import (
	"strings"
	"unicode"
)

// splitIntoSentences breaks text into sentences. Lines accumulate into the
// current sentence until terminal punctuation or a blank line; a blank line
// always ends the sentence in progress, so paragraphs never merge.
func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	emit := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emit()
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)
			if endsSentence(sentence) {
				emit()
			}
		}
	}
	emit()

	return sentences
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, `"')]}`)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitLineIntoSentences splits one line at terminal punctuation, keeping
// trailing quotes and brackets with their sentence. A period directly after
// a digit and before a space is treated as a numeric listing marker
// ("1. First item"), not a sentence end.
func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}
		if line[i] == '.' && i > 0 && unicode.IsDigit(rune(line[i-1])) &&
			i+1 < len(line) && line[i+1] == ' ' {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
			line[j] == ']' || line[j] == '}') {
			current.WriteByte(line[j])
			j++
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
