package telegram

import (
	"strings"
)

// SplitText cuts text into chunks of at most maxLen runes, preferring to break
// after a sentence, then at a space.
func SplitText(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > maxLen {
		cut := breakPoint(runes[:maxLen])
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}

func breakPoint(window []rune) int {
	s := string(window)
	if i := strings.LastIndex(s, ". "); i > 0 {
		return len([]rune(s[:i+1]))
	}
	if i := strings.LastIndexAny(s, " \n"); i > 0 {
		return len([]rune(s[:i]))
	}
	return len(window)
}
