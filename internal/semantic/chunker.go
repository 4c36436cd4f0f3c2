// Package semantic implements the embedding pipeline: paragraph chunking,
// batch embedding through Ollama, and a flat L2 vector index with parallel
// chunk metadata persisted on disk.
package semantic

import "strings"

// DefaultChunkBudget is the character budget of a chunk when none is
// configured.
const DefaultChunkBudget = 5000

// chunkSeparator joins paragraphs inside a chunk.
const chunkSeparator = "\n\n"

// SplitParagraphs accumulates paragraphs into chunks. A chunk is flushed
// whenever appending the next paragraph would make it reach or exceed the
// budget; the trailing buffer is always flushed. Paragraphs are never split,
// so a single paragraph longer than the budget becomes its own chunk.
func SplitParagraphs(paragraphs []string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkBudget
	}

	var chunks []string
	var buf strings.Builder
	for _, p := range paragraphs {
		if p == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(chunkSeparator)+len(p) >= budget {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(chunkSeparator)
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// JoinChunks is the inverse of SplitParagraphs for the round-trip property:
// splitting the joined chunks on the separator reproduces the original
// paragraph sequence.
func JoinChunks(chunks []string) []string {
	var paragraphs []string
	for _, c := range chunks {
		paragraphs = append(paragraphs, strings.Split(c, chunkSeparator)...)
	}
	return paragraphs
}
