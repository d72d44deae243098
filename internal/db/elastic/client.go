// Package elastic stores records in an Elasticsearch index.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/directory/internal/db"
)

var _ db.RecordStore = (*Store)(nil)

// Source field names. Record attributes live under docField so they can
// never collide with the bookkeeping fields.
const (
	idField       = "id"
	docField      = "doc"
	pointField    = "point"
	modifiedField = "modified_at"
)

// maxResultWindow is the default index.max_result_window: from+size of a
// search may not exceed it.
const maxResultWindow = 10000

// maxCandidates bounds a proximity search to one result window.
const maxCandidates = maxResultWindow

// Config holds connection parameters for an Elasticsearch store.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

// Store implements db.RecordStore on top of go-elasticsearch.
type Store struct {
	client *elasticsearch.Client
	index  string
}

// NewStore creates an Elasticsearch store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return newStore(client, cfg.Index), nil
}

func newStore(client *elasticsearch.Client, index string) *Store {
	if index == "" {
		index = "businesses"
	}
	return &Store{client: client, index: index}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: %s", res.Status())
	}
	return nil
}

// Close is a no-op; the HTTP transport has no persistent state to release.
func (s *Store) Close() {}

// WaitForReady blocks until elasticsearch answers a ping or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitReady(ctx, s, "elasticsearch", timeout)
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (s *Store) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpIndex, Err: err}
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return &db.Error{Op: db.OpIndex, Err: fmt.Errorf("index exists check: %s", res.Status())}
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"dynamic_templates": []any{
				map[string]any{"strings": map[string]any{
					"match_mapping_type": "string",
					"mapping":            map[string]any{"type": "keyword"},
				}},
			},
			"properties": map[string]any{
				idField:       map[string]any{"type": "keyword"},
				pointField:    map[string]any{"type": "geo_point"},
				modifiedField: map[string]any{"type": "date"},
				docField:      map[string]any{"type": "object"},
			},
		},
	}
	body, err := encode(mapping)
	if err != nil {
		return &db.Error{Op: db.OpIndex, Err: err}
	}
	res, err = esapi.IndicesCreateRequest{Index: s.index, Body: body}.Do(ctx, s.client)
	if err != nil {
		return &db.Error{Op: db.OpIndex, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &db.Error{Op: db.OpIndex, Err: responseError(res)}
	}
	return nil
}

func encode(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return strings.NewReader(string(data)), nil
}

func decode(res *esapi.Response, v any) error {
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError extracts the error reason from a failed response.
func responseError(res *esapi.Response) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error.Type == "" {
		return fmt.Errorf("elasticsearch: %s", res.Status())
	}
	return fmt.Errorf("elasticsearch: %s: %s: %s", res.Status(), body.Error.Type, body.Error.Reason)
}
