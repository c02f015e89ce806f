package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/utils"
)

func startRedis(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	port, err := c.MappedPort(ctx, "6379")
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return c, host + ":" + port.Port()
}

func TestDocstoreSaveAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	container, addr := startRedis(t, ctx)
	defer func() { _ = container.Terminate(ctx) }()

	adapter, err := NewDocstoreAdapter(config.DocstoreConfig{RedisAddr: addr})
	if err != nil {
		t.Fatalf("NewDocstoreAdapter: %v", err)
	}
	defer adapter.Close()

	saved, err := adapter.Invoke(ctx, "save_document", map[string]any{
		"title":   "Quarterly AI market report",
		"content": "Investment in agent platforms keeps growing across Asia.",
		"tags":    []string{"report", "market"},
	})
	if err != nil {
		t.Fatalf("save_document: %v", err)
	}
	docID := utils.Str(saved["document_id"])
	if docID == "" {
		t.Fatalf("expected a document id")
	}

	found, err := adapter.Invoke(ctx, "search_documents", map[string]any{"query": "agent platforms", "limit": 5})
	if err != nil {
		t.Fatalf("search_documents: %v", err)
	}
	docs, ok := found["documents"].([]map[string]any)
	if !ok || len(docs) == 0 {
		t.Fatalf("expected at least one hit, got %v", found["documents"])
	}
	if utils.Str(docs[0]["id"]) != docID {
		t.Fatalf("expected hit %s, got %v", docID, docs[0]["id"])
	}
}
