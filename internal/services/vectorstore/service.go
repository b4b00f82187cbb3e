// Package vectorstore provides a Badger-backed local vector index
// implementing the VectorStore capability interface: namespace-scoped
// idempotent upsert and cosine-similarity query.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/storage/badger"
)

// keyPrefix scopes vector records away from badgerhold-managed keys.
const keyPrefix = "vec:"

// Service implements interfaces.VectorStore on raw Badger keys.
// Records are keyed "vec:{namespace}:{id}" so one namespace is one
// contiguous key range; queries iterate a single prefix and can never
// observe another entity's records.
type Service struct {
	db     *badger.BadgerDB
	logger arbor.ILogger
}

// NewService creates a new vector store service.
func NewService(db *badger.BadgerDB, logger arbor.ILogger) interfaces.VectorStore {
	return &Service{
		db:     db,
		logger: logger,
	}
}

func recordKey(namespace, id string) []byte {
	return []byte(keyPrefix + strings.ToUpper(namespace) + ":" + id)
}

func namespacePrefix(namespace string) []byte {
	return []byte(keyPrefix + strings.ToUpper(namespace) + ":")
}

// Upsert writes records into the namespace, keyed by record id.
// Replace semantics: re-indexing unchanged content overwrites the same
// keys and cannot grow the stored record count.
func (s *Service) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if len(records) == 0 {
		return nil
	}

	wb := s.db.Store().Badger().NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			return fmt.Errorf("vector record %d has no id", i)
		}
		rec.Namespace = strings.ToUpper(namespace)

		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode vector record %s: %w", rec.ID, err)
		}
		if err := wb.Set(recordKey(namespace, rec.ID), value); err != nil {
			return fmt.Errorf("%w: batch write failed: %v", interfaces.ErrStoreUnavailable, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: flush failed: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.logger.Debug().
		Str("namespace", namespace).
		Int("count", len(records)).
		Msg("Upserted vector records")

	return nil
}

// Query returns the top-k most similar records in the namespace,
// ranked by cosine similarity descending.
func (s *Service) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.RetrievalMatch, error) {
	if topK <= 0 {
		topK = 5
	}

	var matches []models.RetrievalMatch

	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = namespacePrefix(namespace)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var rec models.VectorRecord
				if err := json.Unmarshal(value, &rec); err != nil {
					return fmt.Errorf("failed to decode vector record: %w", err)
				}
				matches = append(matches, models.RetrievalMatch{
					ChunkID:  rec.ID,
					Score:    cosineSimilarity(vector, rec.Embedding),
					Metadata: rec.Metadata,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", interfaces.ErrStoreUnavailable, err)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Count returns the number of records stored in the namespace.
func (s *Service) Count(ctx context.Context, namespace string) (int, error) {
	count := 0
	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = namespacePrefix(namespace)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count failed: %v", interfaces.ErrStoreUnavailable, err)
	}
	return count, nil
}

// Ping verifies the store is open and readable.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil || s.db.Store() == nil {
		return interfaces.ErrStoreUnavailable
	}
	err := s.db.Store().Badger().View(func(txn *badgerdb.Txn) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
