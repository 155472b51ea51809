package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// Collection and field names
const (
	QueryCollection = "research_queries"

	FieldID         = "id"
	FieldQueryHash  = "query_hash"
	FieldRawText    = "raw_text"
	FieldNormalized = "normalized_text"
	FieldDomainTags = "domain_tags"
	FieldEmbedding  = "embedding"
	FieldCreatedAt  = "created_at"
	FieldResult     = "result"
)

// Default constants reused across fields
const (
	defaultMaxVarCharLength = "65535"
	defaultIDMaxLength      = "100"
)

// MilvusStore is the production QueryStore backed by Milvus.
type MilvusStore struct {
	client       *milvusclient.Client
	embeddingDim int
}

// NewMilvusStore connects to Milvus and ensures the query collection
// exists and is loaded.
func NewMilvusStore(ctx context.Context, addr string, embeddingDim int) (*MilvusStore, error) {
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", addr, err)
	}

	s := &MilvusStore{client: client, embeddingDim: embeddingDim}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ensureCollection creates and loads the query collection if needed.
func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	hasOpt := milvusclient.NewHasCollectionOption(QueryCollection)
	exists, err := s.client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: QueryCollection,
			Description:    "Append-only research query records with embeddings",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{
						"max_length": defaultIDMaxLength,
					},
				},
				{
					Name:     FieldQueryHash,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": defaultIDMaxLength,
					},
				},
				{
					Name:     FieldRawText,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": defaultMaxVarCharLength,
					},
				},
				{
					Name:     FieldNormalized,
					DataType: entity.FieldTypeVarChar,
					TypeParams: map[string]string{
						"max_length": defaultMaxVarCharLength,
					},
				},
				{
					Name:     FieldDomainTags,
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:     FieldEmbedding,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": fmt.Sprintf("%d", s.embeddingDim),
					},
				},
				{
					Name:     FieldCreatedAt,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:     FieldResult,
					DataType: entity.FieldTypeJSON,
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(QueryCollection, schema)
		createOpt.WithShardNum(2)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create query collection: %w", err)
		}

		denseIdx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(QueryCollection, FieldEmbedding, denseIdx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on embedding field: %w", err)
		}

		logger.Info("Created collection with cosine HNSW index: %s", QueryCollection)
		time.Sleep(500 * time.Millisecond)
	}

	loadOpt := milvusclient.NewLoadCollectionOption(QueryCollection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s into memory: %w", QueryCollection, err)
	}
	return nil
}

// Append inserts a query record with its synthesized result. A record
// whose query hash is already present is left untouched.
func (s *MilvusStore) Append(ctx context.Context, rec core.QueryRecord, res core.StoredResult) error {
	existing, err := s.FindExact(ctx, rec.QueryHash)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debug("Query %s already stored, skipping insert", rec.QueryHash)
		return nil
	}

	tagsJSON, err := json.Marshal(rec.DomainTags)
	if err != nil {
		return fmt.Errorf("failed to marshal domain tags: %w", err)
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal stored result: %w", err)
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(QueryCollection,
		column.NewColumnVarChar(FieldID, []string{rec.ID}),
		column.NewColumnVarChar(FieldQueryHash, []string{rec.QueryHash}),
		column.NewColumnVarChar(FieldRawText, []string{rec.RawText}),
		column.NewColumnVarChar(FieldNormalized, []string{rec.NormalizedText}),
		column.NewColumnJSONBytes(FieldDomainTags, [][]byte{tagsJSON}),
		column.NewColumnFloatVector(FieldEmbedding, s.embeddingDim, [][]float32{rec.Embedding}),
		column.NewColumnInt64(FieldCreatedAt, []int64{rec.CreatedAt.Unix()}),
		column.NewColumnJSONBytes(FieldResult, [][]byte{resultJSON}),
	)
	if _, err := s.client.Insert(ctx, insertOpt); err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	flushOpt := milvusclient.NewFlushOption(QueryCollection)
	if _, err := s.client.Flush(ctx, flushOpt); err != nil {
		logger.Warn("Failed to flush collection after insert: %v", err)
	}
	return nil
}

// NearestNeighbors runs a cosine KNN search over stored embeddings.
func (s *MilvusStore) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]core.Neighbor, error) {
	if k <= 0 {
		k = 5
	}

	searchOpt := milvusclient.NewSearchOption(QueryCollection, k, []entity.Vector{entity.FloatVector(embedding)}).
		WithANNSField(FieldEmbedding).
		WithOutputFields(FieldID, FieldQueryHash, FieldRawText, FieldNormalized, FieldDomainTags, FieldCreatedAt)

	resultSets, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to search query collection: %w", err)
	}

	var neighbors []core.Neighbor
	for _, rs := range resultSets {
		for i := 0; i < rs.ResultCount; i++ {
			rec, err := recordFromColumns(rs.GetColumn, i)
			if err != nil {
				logger.Warn("Skipping malformed search hit %d: %v", i, err)
				continue
			}
			neighbors = append(neighbors, core.Neighbor{
				Record:     rec,
				Similarity: float64(rs.Scores[i]),
			})
		}
	}
	return neighbors, nil
}

// FindExact looks a record up by its query hash.
func (s *MilvusStore) FindExact(ctx context.Context, queryHash string) (*core.QueryRecord, error) {
	expr := fmt.Sprintf(`%s == "%s"`, FieldQueryHash, queryHash)

	queryOpt := milvusclient.NewQueryOption(QueryCollection).
		WithFilter(expr).
		WithOutputFields(FieldID, FieldQueryHash, FieldRawText, FieldNormalized, FieldDomainTags, FieldCreatedAt).
		WithLimit(1)

	result, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query by hash %s: %w", queryHash, err)
	}
	if result.ResultCount == 0 {
		return nil, nil
	}

	rec, err := recordFromColumns(result.GetColumn, 0)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ResultFor returns the stored result for a query ID.
func (s *MilvusStore) ResultFor(ctx context.Context, queryID string) (*core.StoredResult, error) {
	expr := fmt.Sprintf(`%s == "%s"`, FieldID, queryID)

	queryOpt := milvusclient.NewQueryOption(QueryCollection).
		WithFilter(expr).
		WithOutputFields(FieldResult).
		WithLimit(1)

	result, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query result for %s: %w", queryID, err)
	}
	if result.ResultCount == 0 {
		return nil, nil
	}

	resCol := result.GetColumn(FieldResult)
	if resCol == nil {
		return nil, fmt.Errorf("result column missing for query %s", queryID)
	}
	raw, err := resCol.GetAsString(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored result: %w", err)
	}

	var stored core.StoredResult
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	return &stored, nil
}

// Count returns the number of stored query records.
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	queryOpt := milvusclient.NewQueryOption(QueryCollection).
		WithOutputFields("count(*)")

	result, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return 0, fmt.Errorf("failed to count query records: %w", err)
	}
	col := result.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, nil
	}
	n, err := col.GetAsInt64(0)
	if err != nil {
		return 0, fmt.Errorf("failed to read count: %w", err)
	}
	return n, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Close(ctx)
}

// recordFromColumns rebuilds a QueryRecord from an output column set.
// The embedding is not returned by searches and stays empty.
func recordFromColumns(getColumn func(string) column.Column, i int) (core.QueryRecord, error) {
	var rec core.QueryRecord

	read := func(field string) (string, error) {
		col := getColumn(field)
		if col == nil {
			return "", fmt.Errorf("column %s missing", field)
		}
		return col.GetAsString(i)
	}

	var err error
	if rec.ID, err = read(FieldID); err != nil {
		return rec, err
	}
	if rec.QueryHash, err = read(FieldQueryHash); err != nil {
		return rec, err
	}
	if rec.RawText, err = read(FieldRawText); err != nil {
		return rec, err
	}
	if rec.NormalizedText, err = read(FieldNormalized); err != nil {
		return rec, err
	}

	if tagsRaw, err := read(FieldDomainTags); err == nil && tagsRaw != "" {
		if err := json.Unmarshal([]byte(tagsRaw), &rec.DomainTags); err != nil {
			logger.Warn("Failed to decode domain tags for %s: %v", rec.ID, err)
		}
	}

	if col := getColumn(FieldCreatedAt); col != nil {
		if ts, err := col.GetAsInt64(i); err == nil {
			rec.CreatedAt = time.Unix(ts, 0).UTC()
		}
	}
	return rec, nil
}
