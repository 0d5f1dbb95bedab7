package similarity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/clausewise/contract-analyzer/pkg/models"
)

var (
	// ErrInvalidQuery is returned for queries with k <= 0
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDimensionMismatch is returned when a vector's length does not
	// match the index dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// ClauseRecord is a historical clause stored in the index
type ClauseRecord struct {
	ID          string
	ClauseText  string
	ClauseType  models.ClauseType
	IsFavorable bool
	Explanation string
}

type indexEntry struct {
	record ClauseRecord
	vector []float32
	seq    uint64
}

// Index answers k-nearest-neighbor queries over clause embeddings by
// cosine similarity. All vectors must share the dimension fixed at
// construction. Safe for concurrent use: queries see a consistent
// snapshot of the entries present when the query acquires the lock.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*indexEntry
	nextSeq   uint64
}

// NewIndex creates an empty index for vectors of the given dimension
func NewIndex(dimension int) *Index {
	return &Index{
		dimension: dimension,
		entries:   make(map[string]*indexEntry),
	}
}

// Upsert adds a clause to the index. Idempotent per clause ID:
// re-indexing an existing ID replaces its prior record and vector.
func (ix *Index) Upsert(record ClauseRecord, vector []float32) error {
	if record.ID == "" {
		return fmt.Errorf("%w: record has no ID", ErrInvalidQuery)
	}
	if len(vector) != ix.dimension {
		return fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(vector), ix.dimension)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.nextSeq++
	ix.entries[record.ID] = &indexEntry{
		record: record,
		vector: vector,
		seq:    ix.nextSeq,
	}
	return nil
}

// Query returns up to k clauses most similar to the given vector, in
// descending similarity order. Ties are broken most-recently-indexed
// first, so results are deterministic for a fixed index state.
func (ix *Index) Query(vector []float32, k int) ([]models.SimilarClause, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, k)
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: got %d, index dimension %d", ErrDimensionMismatch, len(vector), ix.dimension)
	}

	ix.mu.RLock()
	type scored struct {
		entry      *indexEntry
		similarity float64
	}
	candidates := make([]scored, 0, len(ix.entries))
	for _, e := range ix.entries {
		candidates = append(candidates, scored{
			entry:      e,
			similarity: CosineSimilarity(vector, e.vector),
		})
	}
	ix.mu.RUnlock()

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].similarity != candidates[b].similarity {
			return candidates[a].similarity > candidates[b].similarity
		}
		return candidates[a].entry.seq > candidates[b].entry.seq
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	results := make([]models.SimilarClause, k)
	for i := 0; i < k; i++ {
		c := candidates[i]
		results[i] = models.SimilarClause{
			ID:          c.entry.record.ID,
			ClauseText:  c.entry.record.ClauseText,
			ClauseType:  c.entry.record.ClauseType,
			IsFavorable: c.entry.record.IsFavorable,
			Explanation: c.entry.record.Explanation,
			Similarity:  c.similarity,
		}
	}
	return results, nil
}

// Dimension returns the fixed vector dimension of the index
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Len returns the number of indexed clauses
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
