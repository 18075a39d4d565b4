package numerology

import "strings"

const leadSentences = 2

// Teaser splits long text for the ad-gated reveal. Full always carries the
// whole text; Lead and Hidden are display hints only.
type Teaser struct {
	Full   string `json:"full"`
	Lead   string `json:"lead"`
	Hidden string `json:"hidden"`
}

// Split keeps the first two sentences in Lead. Sentence terminators stay with
// their sentence.
func Split(text string) Teaser {
	text = strings.TrimSpace(text)
	cut, seen := -1, 0
	for i, r := range text {
		if !isSentenceEnd(r) {
			continue
		}
		seen++
		if seen == leadSentences {
			cut = i + len(string(r))
			break
		}
	}
	if cut < 0 || cut >= len(text) {
		return Teaser{Full: text, Lead: text}
	}
	return Teaser{
		Full:   text,
		Lead:   text[:cut],
		Hidden: strings.TrimSpace(text[cut:]),
	}
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}
