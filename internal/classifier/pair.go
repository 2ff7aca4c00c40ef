package classifier

import "strings"

const (
	DefaultMaxSequenceTokens = 256
	DefaultPairSeparator     = "</s></s>"

	// <s> prompt </s></s> text </s>
	pairSpecialTokens = 4
)

// TruncatePair trims the feedback text so the (prompt, text) pair fits
// maxTokens. The prompt is never truncated. Tokens are approximated by
// whitespace-separated words, which is what the word-segmented encoder
// vocabulary is built on.
func TruncatePair(prompt, text string, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxSequenceTokens
	}

	budget := maxTokens - pairSpecialTokens - len(strings.Fields(prompt))
	if budget <= 0 {
		return ""
	}

	words := strings.Fields(text)
	if len(words) <= budget {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:budget], " ")
}

// JoinPair renders a sequence pair as one encoder input for runtimes that
// only accept single sequences.
func JoinPair(prompt, text, separator string) string {
	if separator == "" {
		separator = DefaultPairSeparator
	}
	return prompt + " " + separator + " " + text
}
