// internal/catalog/elasticsearch.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchSource reads the scholarship catalog from a search index.
// Results keep the index's relevance order, which becomes the matcher's
// tie-break input order.
type ElasticsearchSource struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchSource wraps an Elasticsearch client and index name.
func NewElasticsearchSource(client *elasticsearch.Client, index string) *ElasticsearchSource {
	if index == "" {
		index = "scholarships"
	}
	return &ElasticsearchSource{client: client, index: index}
}

// Lookup runs a filtered match query for the field and country.
func (s *ElasticsearchSource) Lookup(ctx context.Context, field, country string) ([]Scholarship, error) {
	var must []map[string]interface{}
	if field != "" {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"match": map[string]interface{}{"field": field}},
					{"term": map[string]interface{}{"field.keyword": ""}},
				},
			},
		})
	}
	if country != "" {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"match": map[string]interface{}{"country": country}},
					{"term": map[string]interface{}{"country.keyword": ""}},
				},
			},
		})
	}
	query := map[string]interface{}{
		"size": 50,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("catalog search error: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Scholarship `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("catalog search decode: %w", err)
	}

	out := make([]Scholarship, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
