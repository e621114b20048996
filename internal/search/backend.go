package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/vburojevic/calltrace/internal/domain"
)

// Backend sends one search request and returns the raw response body
type Backend interface {
	Search(ctx context.Context, endpoint, index, token string, body []byte) ([]byte, error)
}

// OpenSearchBackend talks to OpenSearch clusters through opensearch-go.
// Clients are created lazily, one per endpoint.
type OpenSearchBackend struct {
	transport http.RoundTripper

	mu      sync.Mutex
	clients map[string]*opensearch.Client
}

// NewOpenSearchBackend creates a backend. A nil transport uses the
// opensearch-go default.
func NewOpenSearchBackend(transport http.RoundTripper) *OpenSearchBackend {
	return &OpenSearchBackend{
		transport: transport,
		clients:   make(map[string]*opensearch.Client),
	}
}

func (b *OpenSearchBackend) client(endpoint string) (*opensearch.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.clients[endpoint]; ok {
		return c, nil
	}
	c, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{strings.TrimRight(endpoint, "/")},
		Transport:    b.transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, err
	}
	b.clients[endpoint] = c
	return c, nil
}

// Search implements Backend
func (b *OpenSearchBackend) Search(ctx context.Context, endpoint, index, token string, body []byte) ([]byte, error) {
	c, err := b.client(endpoint)
	if err != nil {
		return nil, &domain.TransportError{Index: index, Err: err}
	}

	req := opensearchapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		Header: http.Header{
			"Authorization": []string{"Bearer " + token},
			"Content-Type":  []string{"application/json"},
		},
	}

	res, err := req.Do(ctx, c)
	if err != nil {
		return nil, &domain.TransportError{Index: index, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &domain.TransportError{Index: index, Status: res.StatusCode, Err: err}
	}
	if res.IsError() {
		return nil, &domain.TransportError{Index: index, Status: res.StatusCode, Err: fmt.Errorf("%s", errorReason(raw))}
	}
	return raw, nil
}

func errorReason(raw []byte) string {
	const max = 200
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty response"
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
