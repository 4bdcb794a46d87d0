// Package search maintains the per-user product catalog index. Indexing is
// write-behind: the API and worker push documents after commit, queries never
// touch the primary database.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"wardrobe/internal/domain"
	"wardrobe/internal/infra"
)

var (
	filterableAttributes = []string{"owner_id", "state", "category_id", "tags", "id"}
	sortableAttributes   = []string{"updated_at"}
)

// ProductDocument is the indexed shape of a product.
type ProductDocument struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	State       string   `json:"state"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	Tags        []string `json:"tags"`
	UpdatedAt   int64    `json:"updated_at"`
}

// DocumentFromProduct converts a product for indexing.
func DocumentFromProduct(p *domain.Product) ProductDocument {
	return ProductDocument{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		State:       string(p.State()),
		Title:       p.Title,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Tags:        p.Tags,
		UpdatedAt:   p.UpdatedAt.Unix(),
	}
}

// Query is an owner-scoped catalog search.
type Query struct {
	OwnerID string
	Text    string
	State   string
	Limit   int64
	Offset  int64
	Sort    []string
}

// Result carries the hits plus paging metadata.
type Result struct {
	Hits             []any
	EstimatedTotal   int64
	ProcessingTimeMs int64
}

// Indexer wraps the Meilisearch index used for the wardrobe catalog.
type Indexer struct {
	client meilisearch.ServiceManager
	index  string
	logger infra.Logger
}

// NewIndexer connects to Meilisearch and ensures index settings.
func NewIndexer(host, apiKey, index string, logger infra.Logger) (*Indexer, error) {
	if host == "" || apiKey == "" {
		return nil, fmt.Errorf("search: meilisearch host and key are required")
	}
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	idx := &Indexer{client: client, index: index, logger: logger}
	if err := idx.ensureIndex(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Indexer) ensureIndex() error {
	if _, err := i.client.GetIndex(i.index); err != nil {
		task, err := i.client.CreateIndex(&meilisearch.IndexConfig{Uid: i.index, PrimaryKey: "id"})
		if err != nil {
			return fmt.Errorf("search: create index %s: %w", i.index, err)
		}
		if _, err := i.client.WaitForTask(task.TaskUID, 250*time.Millisecond); err != nil {
			return fmt.Errorf("search: wait create index: %w", err)
		}
	}
	idx := i.client.Index(i.index)
	if _, err := idx.UpdateFilterableAttributes(&filterableAttributes); err != nil {
		return fmt.Errorf("search: update filterable attributes: %w", err)
	}
	if _, err := idx.UpdateSortableAttributes(&sortableAttributes); err != nil {
		return fmt.Errorf("search: update sortable attributes: %w", err)
	}
	i.logger.Info().Str("index", i.index).Msg("search: index ready")
	return nil
}

// IndexProduct upserts one product document. Failures are the caller's to
// log; the primary row is already committed.
func (i *Indexer) IndexProduct(ctx context.Context, doc ProductDocument) error {
	if _, err := i.client.Index(i.index).AddDocumentsWithContext(ctx, []ProductDocument{doc}, "id"); err != nil {
		return fmt.Errorf("search: index product %s: %w", doc.ID, err)
	}
	return nil
}

// DeleteProduct removes a product document.
func (i *Indexer) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := i.client.Index(i.index).DeleteDocumentWithContext(ctx, productID); err != nil {
		return fmt.Errorf("search: delete product %s: %w", productID, err)
	}
	return nil
}

// Search runs an owner-scoped query.
func (i *Indexer) Search(ctx context.Context, q Query) (*Result, error) {
	filter := fmt.Sprintf("owner_id = %q", q.OwnerID)
	if q.State != "" {
		filter += fmt.Sprintf(" AND state = %q", q.State)
	}
	req := &meilisearch.SearchRequest{
		Limit:  q.Limit,
		Offset: q.Offset,
		Filter: filter,
	}
	if len(q.Sort) > 0 {
		req.Sort = q.Sort
	}
	resp, err := i.client.Index(i.index).SearchWithContext(ctx, q.Text, req)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	hits := make([]any, len(resp.Hits))
	copy(hits, resp.Hits)
	return &Result{
		Hits:             hits,
		EstimatedTotal:   resp.EstimatedTotalHits,
		ProcessingTimeMs: resp.ProcessingTimeMs,
	}, nil
}
