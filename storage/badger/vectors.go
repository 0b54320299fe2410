package badger

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/normqa/storage"
)

// VectorIndex implements storage.VectorIndex with a brute-force cosine scan
// over vectors stored in the backend. Vectors are normalized at upsert time
// so the scan reduces to a dot product.
type VectorIndex struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex on top of an open backend.
func NewVectorIndex(backend *Backend) (*VectorIndex, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &VectorIndex{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vectors"),
	}, nil
}

// Close is a no-op; the backend owns the database handle.
func (v *VectorIndex) Close() error {
	return nil
}

// Upsert indexes a vector under the given canonical id.
func (v *VectorIndex) Upsert(ctx context.Context, id string, vector []float32) error {
	if id == "" || len(vector) == 0 {
		return storage.ErrInvalidQuery
	}
	normalized := normalize(vector)
	return v.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeKey(vectorPrefix, id), storage.MarshalVector(normalized))
	}, true)
}

// Search returns up to topK matches for the query vector, ranked by score
// descending. Fewer matches than requested signals index exhaustion.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, topK int) ([]storage.VectorMatch, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	query := normalize(vector)

	var results []storage.VectorMatch
	scanPrefix := makeScanPrefix(vectorPrefix)
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := strings.TrimPrefix(string(item.Key()), string(scanPrefix))

			var stored []float32
			err := item.Value(func(val []byte) error {
				var err error
				stored, err = storage.UnmarshalVector(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(stored) != len(query) {
				v.logger.Warn("skipping vector with mismatched dimension",
					"id", id, "want", len(query), "got", len(stored))
				continue
			}

			results = append(results, storage.VectorMatch{
				ID:    id,
				Score: dotProduct(query, stored),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b storage.VectorMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// normalize returns a unit-length copy of the vector.
func normalize(vector []float32) []float32 {
	var sumSquares float64
	for _, f := range vector {
		sumSquares += float64(f) * float64(f)
	}
	if sumSquares == 0 {
		return slices.Clone(vector)
	}
	norm := float32(1.0 / math.Sqrt(sumSquares))
	out := make([]float32, len(vector))
	for i, f := range vector {
		out[i] = f * norm
	}
	return out
}
