// Package chunker splits documents into bounded, overlapping windows
// for embedding. Chunking is deterministic: identical input text under
// identical settings always yields identical chunks and chunk ids.
package chunker

import (
	"fmt"

	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/services/normalize"
)

// Service splits document text into fixed-size overlapping windows.
type Service struct {
	size    int
	overlap int
}

// NewService creates a chunker. Overlap must be smaller than size;
// invalid settings fall back to the defaults used across the app.
func NewService(config *common.ChunkingConfig) *Service {
	size := config.Size
	overlap := config.Overlap
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = 150
		if overlap >= size {
			overlap = size / 8
		}
	}
	return &Service{size: size, overlap: overlap}
}

// Split chunks a document's text. Windows are measured in runes so
// multi-byte text never splits mid-character. Chunks inherit the
// document's metadata plus their position; empty or signal-free
// windows are dropped.
func (s *Service) Split(doc *models.Document) []*models.Chunk {
	if doc == nil {
		return nil
	}

	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := s.size - s.overlap
	chunks := make([]*models.Chunk, 0, (len(runes)/step)+1)
	index := 0
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end > len(runes) {
			end = len(runes)
		}

		text := string(runes[start:end])
		if normalize.ValidText(text) {
			metadata := make(map[string]interface{}, len(doc.Metadata)+3)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata["document_id"] = doc.ID
			metadata["chunk_index"] = index
			metadata["text"] = text

			chunks = append(chunks, &models.Chunk{
				ID:       models.ChunkID(doc.ID, index),
				Text:     text,
				Metadata: metadata,
			})
		}
		index++

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// SplitAll chunks a set of documents in order.
func (s *Service) SplitAll(docs []*models.Document) []*models.Chunk {
	var out []*models.Chunk
	for _, doc := range docs {
		out = append(out, s.Split(doc)...)
	}
	return out
}

// Settings describes the active chunk window for logging.
func (s *Service) Settings() string {
	return fmt.Sprintf("size=%d overlap=%d", s.size, s.overlap)
}
