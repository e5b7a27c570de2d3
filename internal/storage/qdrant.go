package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/auzzton/RAG-Pipeline-Gemini/internal/chunker"
)

// CollectionName is the single Qdrant collection for all policy chunks.
const CollectionName = "policy_documents"

// QdrantStorage is the remote vector backend. It implements the same
// VectorStore contract as FlatStore on top of a Qdrant collection with
// Euclidean distance, so confidence semantics stay identical across
// backends.
type QdrantStorage struct {
	client *qdrant.Client
	dim    int
	count  int
}

// NewQdrantStorage connects to Qdrant, performs a health check with
// exponential backoff, and ensures the collection exists with the
// given vector dimension.
func NewQdrantStorage(host string, port, dim int) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{client: client, dim: dim}

	ctx := context.Background()
	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	if err := storage.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	info, err := storage.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}
	storage.count = int(info.GetPointsCount())

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return s.Health(ctx)
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// ensureCollection creates the collection if missing. Idempotent.
func (s *QdrantStorage) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	// Euclidean distance keeps scores comparable with the flat backend.
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, exponentialBackoff)
}

// Add appends entries, batched in groups of 100. Entry IDs follow the
// same sequential scheme as the flat backend and are carried in the
// payload; Qdrant point IDs are independent UUIDs.
func (s *QdrantStorage) Add(vectors [][]float32, metadatas []chunker.Metadata, texts []string, ids []string) error {
	if len(vectors) != len(metadatas) || len(vectors) != len(texts) {
		return ErrLengthMismatch
	}
	if ids != nil && len(ids) != len(vectors) {
		return ErrLengthMismatch
	}
	for i, v := range vectors {
		if len(v) != s.dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), s.dim)
		}
	}

	if ids == nil {
		ids = make([]string, len(vectors))
		for i := range ids {
			ids[i] = strconv.Itoa(s.count + i)
		}
	}

	ctx := context.Background()
	batchSize := 100
	for i := 0; i < len(vectors); i += batchSize {
		end := min(i+batchSize, len(vectors))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			md := metadatas[j]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuid.New().String()),
				Vectors: qdrant.NewVectors(vectors[j]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"id":            ids[j],
					"text":          texts[j],
					"source":        md.Source,
					"chunk_number":  md.ChunkNumber,
					"chunk_type":    md.ChunkType,
					"chunk_size":    md.ChunkSize,
					"created_at":    md.CreatedAt.Format(time.RFC3339),
					"file_type":     md.FileType,
					"document_type": md.DocumentType,
					"total_pages":   md.TotalPages,
					"total_paras":   md.TotalParagraphs,
				}),
			})
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	s.count += len(vectors)
	return nil
}

// Search queries the collection and maps hits back to Results. With
// Euclidean distance the Qdrant score is the distance itself.
func (s *QdrantStorage) Search(query []float32, topK int) ([]Result, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), s.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	ctx := context.Background()
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		payload := hit.Payload

		createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
		if err != nil {
			createdAt = time.Time{}
		}

		results = append(results, Result{
			Text: payload["text"].GetStringValue(),
			Metadata: chunker.Metadata{
				Source:          payload["source"].GetStringValue(),
				ChunkNumber:     int(payload["chunk_number"].GetIntegerValue()),
				ChunkType:       payload["chunk_type"].GetStringValue(),
				ChunkSize:       int(payload["chunk_size"].GetIntegerValue()),
				CreatedAt:       createdAt,
				FileType:        payload["file_type"].GetStringValue(),
				DocumentType:    payload["document_type"].GetStringValue(),
				TotalPages:      int(payload["total_pages"].GetIntegerValue()),
				TotalParagraphs: int(payload["total_paras"].GetIntegerValue()),
			},
			ID:       payload["id"].GetStringValue(),
			Distance: float64(hit.Score),
		})
	}
	return results, nil
}

// Count reports the number of stored entries.
func (s *QdrantStorage) Count() int {
	return s.count
}

// Clear deletes and recreates the collection.
func (s *QdrantStorage) Clear() error {
	ctx := context.Background()
	if err := s.client.DeleteCollection(ctx, CollectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	s.count = 0
	return s.ensureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
