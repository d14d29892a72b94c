package ingestion

import (
	"strings"
	"testing"
)

func Test_Chunk_SplitsWithOverlap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 2500)
	chunks := Chunk(text, 1000, 200)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 1000 || len(chunks[1]) != 1000 {
		t.Errorf("chunk lengths = %d, %d", len(chunks[0]), len(chunks[1]))
	}
	// Last chunk is the remainder starting at 1600.
	if len(chunks[2]) != 900 {
		t.Errorf("last chunk length = %d, want 900", len(chunks[2]))
	}
}

func Test_Chunk_ShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := Chunk("  a short note  ", 1000, 200)
	if len(chunks) != 1 || chunks[0] != "a short note" {
		t.Fatalf("chunks = %q", chunks)
	}
}

func Test_Chunk_EmptyAndWhitespaceOnly(t *testing.T) {
	t.Parallel()

	if got := Chunk("", 1000, 200); got != nil {
		t.Errorf("empty text: %q", got)
	}
	if got := Chunk("   \n\t  ", 1000, 200); got != nil {
		t.Errorf("whitespace text: %q", got)
	}
}

func Test_Chunk_OverlapAtLeastSizeStillProgresses(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 500)
	chunks := Chunk(text, 100, 100)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	// With the overlap clamped to size/10 the step is 90 characters.
	if len(chunks) != 6 {
		t.Errorf("want 6 chunks, got %d", len(chunks))
	}
}

func Test_Chunk_DefaultsApplied(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("y", 1500)
	chunks := Chunk(text, 0, -1)
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks with defaults, got %d", len(chunks))
	}
	if len(chunks[0]) != DefaultChunkSize {
		t.Errorf("first chunk length = %d, want %d", len(chunks[0]), DefaultChunkSize)
	}
}
