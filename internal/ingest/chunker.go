package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators, in preference order: paragraph, line, word, hard character cut.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits documents into overlapping segments of at most size
// characters. It prefers to break at natural boundaries and falls back to
// hard character cuts when a segment has none.
//
// Chunking is deterministic: the same document and configuration always
// produce the same segments and ids.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Non-positive size or a negative overlap
// falls back to the defaults; an overlap >= size is clamped so the cut
// stride stays positive.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits a document into ordered chunks. An empty or whitespace-only
// document yields no chunks; a document shorter than the chunk size yields
// exactly one chunk covering the whole content.
func (c *Chunker) Chunk(doc Document) []Chunk {
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	protocol := strings.TrimSuffix(doc.Source, ".txt")
	segments := c.split(doc.Content, separators)

	chunks := make([]Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, Chunk{
			ChunkID:      fmt.Sprintf("%s_%d", protocol, i),
			ProtocolName: protocol,
			Source:       doc.Source,
			Content:      seg,
			Index:        i,
		})
	}
	return chunks
}

// split recursively splits text on the first separator that applies, merging
// the pieces back into segments of at most c.size characters with c.overlap
// characters carried over between consecutive segments.
func (c *Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		return []string{text}
	}
	if len(seps) == 0 || seps[0] == "" {
		return c.hardCut(text)
	}

	sep := seps[0]
	rest := seps[1:]

	// SplitAfter keeps the separator attached so joining the parts
	// reconstructs the original text exactly.
	parts := strings.SplitAfter(text, sep)

	var out []string
	var window []string
	winLen := 0

	emit := func() {
		if len(window) == 0 {
			return
		}
		seg := strings.TrimSpace(strings.Join(window, ""))
		if seg != "" {
			out = append(out, seg)
		}
	}

	for _, p := range parts {
		plen := utf8.RuneCountInString(p)

		// A part that alone exceeds the chunk size gets split again
		// with the next, finer separator. The overlap window does not
		// carry across this boundary.
		if plen > c.size {
			emit()
			window = window[:0]
			winLen = 0
			out = append(out, c.split(p, rest)...)
			continue
		}

		if winLen+plen > c.size && len(window) > 0 {
			emit()
			// Retain at most c.overlap trailing characters as the
			// start of the next segment.
			for winLen > c.overlap || (winLen+plen > c.size && winLen > 0) {
				winLen -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}

		window = append(window, p)
		winLen += plen
	}
	emit()

	return out
}

// hardCut slices text into windows of exactly c.size characters advancing by
// size-overlap, so consecutive windows share exactly c.overlap characters.
// The final window covers whatever remains.
func (c *Chunker) hardCut(text string) []string {
	runes := []rune(text)
	stride := c.size - c.overlap

	var out []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
