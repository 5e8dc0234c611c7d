package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// unbrokenText builds n characters with no natural break points, with
// varied content so overlap checks are meaningful.
func unbrokenText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}

func TestChunk_ShortDocument(t *testing.T) {
	c := NewChunker(1000, 200)
	doc := Document{Source: "magnesium.txt", Content: "Magnesium supports sleep quality."}

	chunks := c.Chunk(doc)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != doc.Content {
		t.Errorf("chunk content = %q, want whole document", chunks[0].Content)
	}
	if chunks[0].ChunkID != "magnesium_0" {
		t.Errorf("chunk id = %q, want magnesium_0", chunks[0].ChunkID)
	}
	if chunks[0].ProtocolName != "magnesium" {
		t.Errorf("protocol = %q, want magnesium", chunks[0].ProtocolName)
	}
}

func TestChunk_EmptyDocument(t *testing.T) {
	c := NewChunker(1000, 200)

	if got := c.Chunk(Document{Source: "empty.txt"}); got != nil {
		t.Errorf("empty document produced %d chunks, want 0", len(got))
	}
	if got := c.Chunk(Document{Source: "blank.txt", Content: "  \n\n  "}); got != nil {
		t.Errorf("whitespace document produced %d chunks, want 0", len(got))
	}
}

func TestChunk_HardCutOverlap(t *testing.T) {
	c := NewChunker(1000, 200)
	content := unbrokenText(2400)
	doc := Document{Source: "magnesium.txt", Content: content}

	chunks := c.Chunk(doc)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantIDs := []string{"magnesium_0", "magnesium_1", "magnesium_2"}
	for i, id := range wantIDs {
		if chunks[i].ChunkID != id {
			t.Errorf("chunk %d id = %q, want %q", i, chunks[i].ChunkID, id)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d sequence index = %d", i, chunks[i].Index)
		}
	}

	if n := utf8.RuneCountInString(chunks[0].Content); n != 1000 {
		t.Errorf("chunk 0 length = %d, want 1000", n)
	}
	if n := utf8.RuneCountInString(chunks[1].Content); n != 1000 {
		t.Errorf("chunk 1 length = %d, want 1000", n)
	}

	// Consecutive chunks share exactly 200 characters.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Content
		tail := prev[len(prev)-200:]
		if !strings.HasPrefix(chunks[i].Content, tail) {
			t.Errorf("chunk %d does not start with the last 200 chars of chunk %d", i, i-1)
		}
	}

	// Dropping each chunk's 200-char overlap reconstructs the document.
	rebuilt := chunks[0].Content
	for i := 1; i < len(chunks); i++ {
		rebuilt += chunks[i].Content[200:]
	}
	if rebuilt != content {
		t.Error("chunks do not reconstruct the original document")
	}
}

func TestChunk_NaturalBoundaries(t *testing.T) {
	c := NewChunker(1000, 200)

	para := strings.Repeat("Magnesium glycinate is well tolerated. ", 10) // ~390 chars
	content := para + "\n\n" + para + "\n\n" + para
	chunks := c.Chunk(Document{Source: "magnesium.txt", Content: content})

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Content); n > 1000 {
			t.Errorf("chunk %d length %d exceeds chunk size", i, n)
		}
	}
	if !strings.HasPrefix(chunks[0].Content, "Magnesium glycinate") {
		t.Errorf("first chunk does not start at the document start: %q", chunks[0].Content[:40])
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker(1000, 200)
	doc := Document{Source: "sleep.txt", Content: unbrokenText(5000)}

	first := c.Chunk(doc)
	second := c.Chunk(doc)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestNewChunker_ClampsBadConfig(t *testing.T) {
	c := NewChunker(0, -1)
	if c.size != DefaultChunkSize || c.overlap != DefaultChunkOverlap {
		t.Errorf("defaults not applied: size=%d overlap=%d", c.size, c.overlap)
	}

	c = NewChunker(100, 100)
	if c.overlap >= c.size {
		t.Errorf("overlap %d not clamped below size %d", c.overlap, c.size)
	}
}
