package rerank

import "github.com/kasetai/khonha/internal/embedding"

// tokenizePair packs query and text into one BERT-style sequence:
// [CLS] query [SEP] text [SEP], token_type 0 for the query segment and 1
// for the text segment. Over-length input is truncated, never rejected.
func tokenizePair(query, text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = 101 // [CLS]
	attentionMask[0] = 1

	pos := 1
	for _, word := range embedding.SplitWords(query) {
		if pos >= maxTokens-2 {
			break
		}
		inputIDs[pos] = int64(embedding.HashString(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
		pos++
	}
	for _, word := range embedding.SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(embedding.HashString(word) % 30000)
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
