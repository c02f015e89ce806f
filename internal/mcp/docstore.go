package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/utils"
)

const docstoreKeyPrefix = "agentflow:doc:"

// Document is the stored form of a saved report or artifact.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocstoreAdapter serves the docstore server. Documents persist in redis;
// full-text search runs over an in-memory bleve index rebuilt per process.
type DocstoreAdapter struct {
	rdb   *redis.Client
	index bleve.Index
	mu    sync.Mutex
}

func NewDocstoreAdapter(cfg config.DocstoreConfig) (*DocstoreAdapter, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, fmt.Errorf("docstore: empty redis address")
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("docstore: bleve: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &DocstoreAdapter{rdb: rdb, index: index}, nil
}

func (a *DocstoreAdapter) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	switch tool {
	case "save_document":
		return a.save(ctx, args)
	case "search_documents":
		return a.search(ctx, args)
	default:
		return nil, fmt.Errorf("docstore: unsupported tool %s", tool)
	}
}

func (a *DocstoreAdapter) save(ctx context.Context, args map[string]any) (map[string]any, error) {
	title := utils.Str(args["title"])
	content := utils.Str(args["content"])
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("docstore: empty title")
	}
	doc := Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Tags:      toStrings(args["tags"]),
		CreatedAt: time.Now(),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal: %w", err)
	}
	if err := a.rdb.Set(ctx, docstoreKeyPrefix+doc.ID, payload, 0).Err(); err != nil {
		return nil, fmt.Errorf("docstore: redis set: %w", err)
	}
	a.mu.Lock()
	err = a.index.Index(doc.ID, map[string]any{"title": doc.Title, "content": doc.Content})
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("docstore: index: %w", err)
	}
	return map[string]any{"document_id": doc.ID, "title": doc.Title}, nil
}

func (a *DocstoreAdapter) search(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := utils.Str(args["query"])
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("docstore: empty query")
	}
	limit := utils.Int(args["limit"])
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	a.mu.Lock()
	res, err := a.index.Search(req)
	a.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("docstore: search: %w", err)
	}
	docs := make([]map[string]any, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, err := a.rdb.Get(ctx, docstoreKeyPrefix+hit.ID).Bytes()
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		docs = append(docs, map[string]any{
			"id":    doc.ID,
			"title": doc.Title,
			"score": hit.Score,
		})
	}
	return map[string]any{"documents": docs}, nil
}

// Close releases the redis connection and the search index.
func (a *DocstoreAdapter) Close() error {
	_ = a.index.Close()
	return a.rdb.Close()
}

func toStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, utils.Str(item))
		}
		return out
	default:
		return nil
	}
}
