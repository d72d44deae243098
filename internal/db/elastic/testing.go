package elastic

import "github.com/elastic/go-elasticsearch/v8"

// NewStoreForTest wraps an existing client (test-only).
func NewStoreForTest(client *elasticsearch.Client, index string) *Store {
	return newStore(client, index)
}
