// Package vector provides the client for the hosted Chroma vector store.
//
// The store is an external collaborator: it embeds and indexes chunk text
// server-side and answers similarity queries. This package only speaks the
// collection/upsert/query wire contract; what goes into a collection is
// decided by the ingestion pipeline, what comes out by the chat retriever.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Paramfpv/lev/internal/log"
)

// ErrMissingAPIKey indicates no Chroma credential is configured. Callers
// treat this as a configuration error and skip vector store operations
// rather than failing the surrounding run.
var ErrMissingAPIKey = errors.New("missing CHROMA_API_KEY")

// DefaultTimeout bounds each request to the vector store.
const DefaultTimeout = 30 * time.Second

// Config holds Chroma Cloud connection settings.
type Config struct {
	APIKey   string
	Tenant   string
	Database string
	BaseURL  string
	Timeout  time.Duration
}

// Client talks to the Chroma Cloud REST API.
// It is stateless and safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	tenant   string
	database string
	http     *http.Client
	logger   log.Logger
}

// NewClient creates a Chroma client. Returns ErrMissingAPIKey when no
// credential is configured.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trychroma.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		tenant:   cfg.Tenant,
		database: cfg.Database,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

// Collection is a handle to one named collection in the store.
type Collection struct {
	client *Client
	id     string
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// GetOrCreateCollection returns a handle to the named collection, creating
// it on first use.
func (c *Client) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	body := map[string]any{
		"name":          name,
		"get_or_create": true,
	}
	var resp struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.do(ctx, c.collectionsPath(), body, &resp); err != nil {
		return nil, fmt.Errorf("get or create collection %q: %w", name, err)
	}

	c.logger.Debug("collection ready", "name", name, "id", resp.ID)
	return &Collection{client: c, id: resp.ID, name: name}, nil
}

// Upsert inserts or updates entries keyed by id. Previously seen ids are
// updated in place, never duplicated.
func (col *Collection) Upsert(ctx context.Context, ids, documents []string, metadatas []map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{
		"ids":       ids,
		"documents": documents,
		"metadatas": metadatas,
	}
	path := col.client.collectionsPath() + "/" + col.id + "/upsert"
	if err := col.client.do(ctx, path, body, nil); err != nil {
		return fmt.Errorf("upsert %d entries into %q: %w", len(ids), col.name, err)
	}
	return nil
}

// Query returns the content of the topK entries most similar to query, in
// descending relevance order. Fewer results are returned when the
// collection holds fewer matches.
func (col *Collection) Query(ctx context.Context, query string, topK int) ([]string, error) {
	body := map[string]any{
		"query_texts": []string{query},
		"n_results":   topK,
		"include":     []string{"documents"},
	}
	var resp struct {
		Documents [][]string `json:"documents"`
	}
	path := col.client.collectionsPath() + "/" + col.id + "/query"
	if err := col.client.do(ctx, path, body, &resp); err != nil {
		return nil, fmt.Errorf("query %q: %w", col.name, err)
	}

	if len(resp.Documents) == 0 {
		return nil, nil
	}
	return resp.Documents[0], nil
}

func (c *Client) collectionsPath() string {
	return fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections", c.tenant, c.database)
}

// do posts a JSON body and decodes the response into out (ignored if nil).
// Non-2xx responses become errors carrying the status and a bounded slice
// of the response body.
func (c *Client) do(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Chroma-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vector store request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vector store returned %s: %s", resp.Status, detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
