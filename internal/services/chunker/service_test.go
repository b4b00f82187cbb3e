package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/models"
)

func newTestChunker(size, overlap int) *Service {
	return NewService(&common.ChunkingConfig{Size: size, Overlap: overlap})
}

func testDoc(id, text string) *models.Document {
	return &models.Document{
		ID:        id,
		Ticker:    "MSFT",
		Component: models.ComponentNarrative,
		Text:      text,
		Metadata: map[string]interface{}{
			"ticker":   "MSFT",
			"category": "narrative",
		},
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	service := newTestChunker(100, 20)
	chunks := service.Split(testDoc("MSFT_10-K", "Revenue grew across all segments."))

	require.Len(t, chunks, 1)
	assert.Equal(t, "MSFT_10-K_chunk_0", chunks[0].ID)
	assert.Equal(t, "Revenue grew across all segments.", chunks[0].Text)
}

func TestSplitWindowsOverlap(t *testing.T) {
	service := newTestChunker(10, 4)
	text := "abcdefghijklmnopqrst" // 20 runes
	chunks := service.Split(testDoc("D", text))

	// Step is 6: windows start at 0, 6 and 12; the last window reaches
	// the end of the text.
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "ghijklmnop", chunks[1].Text)
	assert.Equal(t, "mnopqrst", chunks[2].Text)

	// Consecutive windows share the configured overlap.
	assert.True(t, strings.HasPrefix(chunks[1].Text, chunks[0].Text[6:]))
}

func TestSplitDeterministic(t *testing.T) {
	service := newTestChunker(50, 10)
	doc := testDoc("MSFT_10-K", strings.Repeat("The quick brown fox. ", 30))

	first := service.Split(doc)
	second := service.Split(doc)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestSplitRuneSafe(t *testing.T) {
	service := newTestChunker(5, 1)
	text := "日本語のテキストを分割する試験です"
	chunks := service.Split(testDoc("D", text))

	require.NotEmpty(t, chunks)
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, chunk := range chunks[1:] {
		// Drop the overlapping leading rune before appending.
		runes := []rune(chunk.Text)
		rebuilt.WriteString(string(runes[1:]))
	}
	assert.Equal(t, text, rebuilt.String())

	for _, chunk := range chunks {
		assert.True(t, len([]rune(chunk.Text)) <= 5)
	}
}

func TestSplitCarriesMetadata(t *testing.T) {
	service := newTestChunker(100, 0)
	chunks := service.Split(testDoc("MSFT_10-K", "Some filing text."))

	require.Len(t, chunks, 1)
	assert.Equal(t, "MSFT", chunks[0].Metadata["ticker"])
	assert.Equal(t, "MSFT_10-K", chunks[0].Metadata["document_id"])
	assert.Equal(t, 0, chunks[0].Metadata["chunk_index"])
	assert.Equal(t, "Some filing text.", chunks[0].Metadata["text"])
}

func TestSplitDropsSignalFreeWindows(t *testing.T) {
	service := newTestChunker(5, 0)
	// Middle window contains only punctuation.
	chunks := service.Split(testDoc("D", "abcde-----fghij"))

	require.Len(t, chunks, 2)
	assert.Equal(t, "D_chunk_0", chunks[0].ID)
	// The dropped window still consumes its index, keeping surviving
	// ids stable.
	assert.Equal(t, "D_chunk_2", chunks[1].ID)
}

func TestSplitAll(t *testing.T) {
	service := newTestChunker(100, 0)
	docs := []*models.Document{
		testDoc("A", "First document."),
		testDoc("B", "Second document."),
		{ID: "C", Text: ""},
	}

	chunks := service.SplitAll(docs)
	require.Len(t, chunks, 2)
	assert.Equal(t, "A_chunk_0", chunks[0].ID)
	assert.Equal(t, "B_chunk_0", chunks[1].ID)
}

func TestSplitNil(t *testing.T) {
	service := newTestChunker(100, 10)
	assert.Nil(t, service.Split(nil))
}
