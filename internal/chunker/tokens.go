package chunker

import "strings"

// EstimateTokens approximates the token count of a text span.
// The estimate is wordCount / 0.75, rounded: subword tokenizers emit
// roughly four tokens for every three words of English prose.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (4*words + 2) / 3
}
