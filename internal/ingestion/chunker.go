package ingestion

import "strings"

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters repeated between
	// consecutive chunks so sentences spanning a boundary stay retrievable.
	DefaultChunkOverlap = 200
)

// Chunk splits text into overlapping chunks of at most size characters,
// stepping size-overlap characters at a time. Each chunk is trimmed of
// surrounding whitespace; chunks that trim to nothing are skipped. An
// overlap >= size is reduced to size/10 to guarantee forward progress.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}

	var chunks []string
	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		if piece := strings.TrimSpace(text[start:end]); piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}
